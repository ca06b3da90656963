package arena

import (
	"context"
	"math"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/memkit/memsim"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// Arena simulates a contiguous address space of fixed capacity, divided into
// an ordered sequence of blocks that are each either free or occupied by one
// named process. It supports the classic request/release/compact cycle of a
// contiguous memory manager.
//
// The blocks always partition [0, capacity) exactly, sorted by offset with no
// gaps and no overlaps, and no two adjacent blocks are ever both free. The
// Arena is not safe for concurrent use; it expects a single sequential
// command stream.
type Arena struct {
	capacity int

	allocCount      int
	blocksFreeCount int
	sumFreeSize     int

	headBlock *block
	tailBlock *block
	ownerKey  *swiss.Map[string, *block]
}

var _ memsim.Validatable = &Arena{}

// New creates an Arena spanning the half-open address range [0, capacity),
// containing a single free block. Capacities below 1 byte fail with
// memsim.InvalidCapacityError.
func New(capacity int) (*Arena, error) {
	if err := memsim.CheckCapacity(capacity, "capacity"); err != nil {
		return nil, err
	}

	a := &Arena{
		capacity:        capacity,
		blocksFreeCount: 1,
		sumFreeSize:     capacity,
		ownerKey:        swiss.NewMap[string, *block](42),
	}

	b := a.allocateBlock()
	b.size = capacity
	a.headBlock = b
	a.tailBlock = b

	return a, nil
}

func (a *Arena) allocateBlock() *block {
	b := blockAllocator.Get().(*block)
	b.offset = 0
	b.size = 0
	b.prevPhysical = nil
	b.nextPhysical = nil
	b.owner = ""
	return b
}

func (a *Arena) freeBlock(b *block) {
	blockAllocator.Put(b)
}

// Capacity returns the size in bytes of the simulated address space.
func (a *Arena) Capacity() int {
	return a.capacity
}

// SumFreeSize returns the number of free bytes in the arena.
func (a *Arena) SumFreeSize() int {
	return a.sumFreeSize
}

// AllocationCount returns the number of processes currently occupying blocks.
func (a *Arena) AllocationCount() int {
	return a.allocCount
}

// FreeRegionsCount returns the number of distinct free blocks. Adjacent free
// regions are always merged, so this is also a measure of fragmentation.
func (a *Arena) FreeRegionsCount() int {
	return a.blocksFreeCount
}

// IsEmpty will return true if no process occupies a block.
func (a *Arena) IsEmpty() bool {
	return a.allocCount == 0
}

// Exists returns true if the provided process id currently occupies a block.
func (a *Arena) Exists(pid string) bool {
	_, ok := a.ownerKey.Get(pid)
	return ok
}

// Request places a new allocation of the requested size for the provided
// process id, choosing among the free blocks according to the provided
// Strategy. On success it returns the half-open address range [start, end)
// now occupied by the process.
//
// Requests for an id that already occupies a block fail with
// ErrDuplicateProcess. Requests no free block can satisfy fail with
// ErrInsufficientSpace. Failed requests leave the arena unchanged; they are
// never queued or retried.
func (a *Arena) Request(pid string, size int, strategy Strategy) (start, end int, err error) {
	memsim.DebugValidate(a)

	if pid == "" {
		return 0, 0, errors.New("process id must not be empty")
	}
	if size < 1 {
		return 0, 0, errors.Errorf("invalid request size: %d", size)
	}

	if _, ok := a.ownerKey.Get(pid); ok {
		return 0, 0, cerrors.Wrapf(ErrDuplicateProcess, "process %q", pid)
	}

	// Is the arena big enough?
	if size > a.sumFreeSize {
		return 0, 0, cerrors.Wrapf(ErrInsufficientSpace, "%d bytes requested, %d bytes free", size, a.sumFreeSize)
	}

	var chosen *block
	switch strategy {
	case StrategyFirstFit:
		chosen = a.findFirstFit(size)
	case StrategyBestFit:
		chosen = a.findBestFit(size)
	case StrategyWorstFit:
		chosen = a.findWorstFit(size)
	default:
		return 0, 0, cerrors.Wrapf(ErrUnknownStrategy, "strategy %d", strategy)
	}

	if chosen == nil {
		return 0, 0, cerrors.Wrapf(ErrInsufficientSpace, "%d bytes requested, no free block is large enough", size)
	}

	start, end = a.claimBlock(chosen, pid, size)
	memsim.DebugValidate(a)

	return start, end, nil
}

func (a *Arena) findFirstFit(size int) *block {
	for b := a.headBlock; b != nil; b = b.nextPhysical {
		if b.IsFree() && b.size >= size {
			return b
		}
	}

	return nil
}

func (a *Arena) findBestFit(size int) *block {
	// Find the smallest free block that fits
	smallestFit := math.MaxInt
	for b := a.headBlock; b != nil; b = b.nextPhysical {
		if b.IsFree() && b.size >= size && b.size < smallestFit {
			smallestFit = b.size
		}
	}

	if smallestFit == math.MaxInt {
		return nil
	}

	for b := a.headBlock; b != nil; b = b.nextPhysical {
		if b.IsFree() && b.size == smallestFit {
			return b
		}
	}

	return nil
}

func (a *Arena) findWorstFit(size int) *block {
	// Find the largest free block that fits
	largestFit := 0
	for b := a.headBlock; b != nil; b = b.nextPhysical {
		if b.IsFree() && b.size >= size && b.size > largestFit {
			largestFit = b.size
		}
	}

	if largestFit == 0 {
		return nil
	}

	for b := a.headBlock; b != nil; b = b.nextPhysical {
		if b.IsFree() && b.size == largestFit {
			return b
		}
	}

	return nil
}

// claimBlock assigns the chosen free block to pid, truncating it to the
// requested size and splitting any leftover space off into a new free block
// immediately after it.
func (a *Arena) claimBlock(b *block, pid string, size int) (start, end int) {
	leftover := b.size - size
	b.owner = pid

	if leftover > 0 {
		// The chosen block was free, so its successor cannot be- the new
		// block needs no merging
		newBlock := a.allocateBlock()
		newBlock.size = leftover
		newBlock.offset = b.offset + size
		newBlock.prevPhysical = b
		newBlock.nextPhysical = b.nextPhysical
		if b.nextPhysical != nil {
			b.nextPhysical.prevPhysical = newBlock
		} else {
			a.tailBlock = newBlock
		}
		b.nextPhysical = newBlock
		b.size = size
	} else {
		a.blocksFreeCount--
	}

	a.sumFreeSize -= size
	a.allocCount++
	a.ownerKey.Put(pid, b)

	return b.offset, b.offset + size
}

// Release returns the block occupied by the provided process id to the free
// pool and merges it with any free neighbor on either side. Ids that occupy
// no block fail with ErrProcessNotFound.
func (a *Arena) Release(pid string) error {
	memsim.DebugValidate(a)

	b, ok := a.ownerKey.Get(pid)
	if !ok {
		return cerrors.Wrapf(ErrProcessNotFound, "process %q", pid)
	}

	a.ownerKey.Delete(pid)
	b.MarkFree()
	a.allocCount--
	a.blocksFreeCount++
	a.sumFreeSize += b.size

	// Try merging
	if next := b.nextPhysical; next != nil && next.IsFree() {
		a.mergeBlock(next, b)
		b = next
		a.blocksFreeCount--
	}

	if prev := b.prevPhysical; prev != nil && prev.IsFree() {
		a.mergeBlock(b, prev)
		a.blocksFreeCount--
	}

	memsim.DebugValidate(a)
	return nil
}

// mergeBlock combines prev into block, extending block downward to cover both
// extents. prev must be block's immediate physical predecessor.
func (a *Arena) mergeBlock(block *block, prev *block) {
	if block.prevPhysical != prev {
		panic("cannot merge separate physical regions")
	}

	block.offset = prev.offset
	block.size += prev.size
	block.prevPhysical = prev.prevPhysical
	if block.prevPhysical != nil {
		block.prevPhysical.nextPhysical = block
	} else {
		a.headBlock = block
	}

	a.freeBlock(prev)
}

// Compact repositions every occupied block so that all occupied blocks are
// contiguous starting at address 0, preserving their relative order, leaving
// all free space consolidated into a single trailing free block (or none when
// the space is fully occupied). Compact never fails and never changes the
// number of free bytes.
func (a *Arena) Compact() {
	memsim.DebugValidate(a)

	// Rebuild the chain in one pass: slide the occupied blocks down and drop
	// the free ones. The observable result matches repeated adjacent swaps.
	var tail *block
	offset := 0

	b := a.headBlock
	for b != nil {
		next := b.nextPhysical
		if b.IsFree() {
			a.freeBlock(b)
		} else {
			b.offset = offset
			offset += b.size
			b.prevPhysical = tail
			b.nextPhysical = nil
			if tail != nil {
				tail.nextPhysical = b
			} else {
				a.headBlock = b
			}
			tail = b
		}
		b = next
	}

	a.blocksFreeCount = 0
	if offset < a.capacity {
		free := a.allocateBlock()
		free.offset = offset
		free.size = a.capacity - offset
		free.prevPhysical = tail
		if tail != nil {
			tail.nextPhysical = free
		} else {
			a.headBlock = free
		}
		tail = free
		a.blocksFreeCount = 1
	}
	a.tailBlock = tail

	memsim.DebugValidate(a)
}

// Clear instantly releases all processes, restoring the arena to a single
// free block spanning the whole space.
func (a *Arena) Clear() {
	b := a.headBlock.nextPhysical
	for b != nil {
		next := b.nextPhysical
		a.freeBlock(b)
		b = next
	}

	head := a.headBlock
	head.offset = 0
	head.size = a.capacity
	head.MarkFree()
	head.nextPhysical = nil
	head.prevPhysical = nil

	a.tailBlock = head
	a.allocCount = 0
	a.blocksFreeCount = 1
	a.sumFreeSize = a.capacity
	a.ownerKey = swiss.NewMap[string, *block](42)
}

// Validate performs internal consistency checks on the arena. When the arena
// is functioning correctly, it should not be possible for this method to
// return an error, but this may assist in diagnosing issues with the
// implementation.
func (a *Arena) Validate() error {
	if a.headBlock == nil {
		return errors.New("the arena has no blocks")
	}

	if a.sumFreeSize > a.capacity {
		return errors.Errorf("the arena's free size %d exceeds its capacity %d", a.sumFreeSize, a.capacity)
	}

	var calculatedSize, calculatedFreeSize int
	var allocCount, freeCount int
	nextOffset := 0
	prevFree := false

	for b := a.headBlock; b != nil; b = b.nextPhysical {
		if b.size <= 0 {
			return errors.Errorf("block at offset %d has invalid size %d", b.offset, b.size)
		}

		if b.offset != nextOffset {
			return errors.Errorf("block at offset %d does not start at the previous block's end offset %d", b.offset, nextOffset)
		}

		if b.prevPhysical != nil && b.prevPhysical.nextPhysical != b {
			return errors.Errorf("block at offset %d has a previous physical block, but the reverse reference is broken", b.offset)
		}

		if b.IsFree() {
			if prevFree {
				return errors.Errorf("adjacent free blocks at offset %d were not merged", b.offset)
			}

			freeCount++
			calculatedFreeSize += b.size
			prevFree = true
		} else {
			mapped, ok := a.ownerKey.Get(b.owner)
			if !ok {
				return errors.Errorf("block at offset %d is owned by process %q, but that process is not in the owner index", b.offset, b.owner)
			}
			if mapped != b {
				return errors.Errorf("the owner index maps process %q to a different block than the one at offset %d", b.owner, b.offset)
			}

			allocCount++
			prevFree = false
		}

		nextOffset = b.offset + b.size
		calculatedSize += b.size

		if b.nextPhysical == nil && b != a.tailBlock {
			return errors.Errorf("the last block is at offset %d, but the tail block reference points elsewhere", b.offset)
		}
	}

	if calculatedSize != a.capacity {
		return errors.Errorf("the full size of the arena is %d, but the blocks only added up to %d", a.capacity, calculatedSize)
	}

	if calculatedFreeSize != a.sumFreeSize {
		return errors.Errorf("the free size of the arena is %d, but the free blocks only added up to %d", a.sumFreeSize, calculatedFreeSize)
	}

	if allocCount != a.allocCount {
		return errors.Errorf("the allocation count of the arena is %d, but the occupied blocks only added up to %d", a.allocCount, allocCount)
	}

	if freeCount != a.blocksFreeCount {
		return errors.Errorf("the free block count of the arena is %d, but there were only %d free blocks", a.blocksFreeCount, freeCount)
	}

	if a.ownerKey.Count() != a.allocCount {
		return errors.Errorf("the owner index holds %d processes, but the arena has %d allocations", a.ownerKey.Count(), a.allocCount)
	}

	return nil
}

// VisitAllRegions will call the provided callback once for each block in the
// arena, in address order.
func (a *Arena) VisitAllRegions(handleBlock func(offset int, size int, owner string, free bool) error) error {
	for b := a.headBlock; b != nil; b = b.nextPhysical {
		err := handleBlock(b.offset, b.size, b.owner, b.IsFree())
		if err != nil {
			return err
		}
	}

	return nil
}

// AddStatistics sums this arena's allocation statistics into the statistics
// currently present in the provided memsim.Statistics object.
func (a *Arena) AddStatistics(stats *memsim.Statistics) {
	stats.ArenaCount++
	stats.ProcessCount += a.allocCount
	stats.ArenaBytes += a.capacity
	stats.ProcessBytes += a.capacity - a.sumFreeSize
}

// AddDetailedStatistics sums this arena's allocation statistics into the
// statistics currently present in the provided memsim.DetailedStatistics
// object.
func (a *Arena) AddDetailedStatistics(stats *memsim.DetailedStatistics) {
	stats.ArenaCount++
	stats.ArenaBytes += a.capacity

	for b := a.headBlock; b != nil; b = b.nextPhysical {
		if b.IsFree() {
			stats.AddFreeRange(b.size)
		} else {
			stats.AddProcess(b.size)
		}
	}
}

// DebugLogAllAllocations calls logFunc once for each occupied block, for
// diagnosing allocations that were never released.
func (a *Arena) DebugLogAllAllocations(logger *slog.Logger, logFunc func(log *slog.Logger, offset int, size int, owner string)) {
	for b := a.headBlock; b != nil; b = b.nextPhysical {
		if !b.IsFree() {
			logFunc(logger, b.offset, b.size, b.owner)
		}
	}
}

// LogUnreleasedProcess is a default logFunc for DebugLogAllAllocations that
// logs the block as an error.
func LogUnreleasedProcess(log *slog.Logger, offset int, size int, owner string) {
	log.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] process still occupies a block",
		slog.Int("offset", offset),
		slog.Int("size", size),
		slog.String("process", owner),
	)
}
