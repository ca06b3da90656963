package arena

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// BlockInfo describes one block in a Report snapshot. Start and End follow
// the half-open convention: the block covers addresses [Start, End).
type BlockInfo struct {
	Start int
	End   int
	// Owner is the id of the occupying process, or empty when Free is true
	Owner string
	Free  bool
}

// Report produces a read-only snapshot of the full block list in address
// order. It never mutates the arena and never fails.
func (a *Arena) Report() []BlockInfo {
	infos := make([]BlockInfo, 0, a.allocCount+a.blocksFreeCount)

	for b := a.headBlock; b != nil; b = b.nextPhysical {
		infos = append(infos, BlockInfo{
			Start: b.offset,
			End:   b.offset + b.size,
			Owner: b.owner,
			Free:  b.IsFree(),
		})
	}

	return infos
}

// ArenaJsonData populates a json object with summary information about this arena
func (a *Arena) ArenaJsonData(json jwriter.ObjectState) {
	json.Name("TotalBytes").Int(a.capacity)
	json.Name("FreeBytes").Int(a.sumFreeSize)
	json.Name("Allocations").Int(a.allocCount)
	json.Name("FreeRanges").Int(a.blocksFreeCount)
}

// BuildStatsString returns a JSON document describing the arena's summary
// counters and every block in address order.
func (a *Arena) BuildStatsString() string {
	writer := jwriter.NewWriter()
	a.printDetailedMap(&writer)
	return string(writer.Bytes())
}

func (a *Arena) printDetailedMap(writer *jwriter.Writer) {
	objState := writer.Object()
	defer objState.End()

	a.ArenaJsonData(objState)

	arrayState := objState.Name("Blocks").Array()
	defer arrayState.End()

	_ = a.VisitAllRegions(
		func(offset int, size int, owner string, free bool) error {
			obj := arrayState.Object()
			defer obj.End()

			obj.Name("Start").Int(offset)
			obj.Name("End").Int(offset + size)
			obj.Name("Size").Int(size)
			if free {
				obj.Name("State").String("Free")
			} else {
				obj.Name("State").String("Occupied")
				obj.Name("Process").String(owner)
			}

			return nil
		})
}
