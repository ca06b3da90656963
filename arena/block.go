package arena

import "sync"

var blockAllocator = sync.Pool{
	New: func() any {
		return &block{}
	},
}

// block is a single contiguous range of the simulated address space. Blocks
// form a doubly-linked chain ordered by offset, spanning the full space with
// no gaps or overlaps.
type block struct {
	offset int
	size   int

	prevPhysical *block
	nextPhysical *block

	// owner is the id of the process occupying this block, or empty when
	// the block is free
	owner string
}

func (b *block) IsFree() bool {
	return b.owner == ""
}

func (b *block) MarkFree() {
	b.owner = ""
}
