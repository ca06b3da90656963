package memsim

import "math"

// Statistics is a basic rollup of the state of one or more simulated arenas.
type Statistics struct {
	ArenaCount   int
	ProcessCount int
	ArenaBytes   int
	ProcessBytes int
}

func (s *Statistics) Clear() {
	s.ArenaCount = 0
	s.ProcessCount = 0
	s.ArenaBytes = 0
	s.ProcessBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.ArenaCount += other.ArenaCount
	s.ProcessCount += other.ProcessCount
	s.ArenaBytes += other.ArenaBytes
	s.ProcessBytes += other.ProcessBytes
}

// DetailedStatistics extends Statistics with fragmentation data: the number of
// distinct free ranges and minimum/maximum sizes of occupied blocks and free
// ranges.
type DetailedStatistics struct {
	Statistics
	FreeRangeCount   int
	ProcessSizeMin   int
	ProcessSizeMax   int
	FreeRangeSizeMin int
	FreeRangeSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.FreeRangeCount = 0
	s.ProcessSizeMin = math.MaxInt
	s.ProcessSizeMax = 0
	s.FreeRangeSizeMin = math.MaxInt
	s.FreeRangeSizeMax = 0
}

func (s *DetailedStatistics) AddFreeRange(size int) {
	s.FreeRangeCount++

	if size < s.FreeRangeSizeMin {
		s.FreeRangeSizeMin = size
	}

	if size > s.FreeRangeSizeMax {
		s.FreeRangeSizeMax = size
	}
}

func (s *DetailedStatistics) AddProcess(size int) {
	s.ProcessCount++
	s.ProcessBytes += size

	if size < s.ProcessSizeMin {
		s.ProcessSizeMin = size
	}

	if size > s.ProcessSizeMax {
		s.ProcessSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.FreeRangeCount += other.FreeRangeCount

	if other.FreeRangeSizeMin < s.FreeRangeSizeMin {
		s.FreeRangeSizeMin = other.FreeRangeSizeMin
	}

	if other.FreeRangeSizeMax > s.FreeRangeSizeMax {
		s.FreeRangeSizeMax = other.FreeRangeSizeMax
	}

	if other.ProcessSizeMin < s.ProcessSizeMin {
		s.ProcessSizeMin = other.ProcessSizeMin
	}

	if other.ProcessSizeMax > s.ProcessSizeMax {
		s.ProcessSizeMax = other.ProcessSizeMax
	}
}
