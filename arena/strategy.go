package arena

import (
	cerrors "github.com/cockroachdb/errors"
)

// Strategy selects which free block satisfies an allocation request when more
// than one is large enough.
type Strategy uint32

const (
	// StrategyFirstFit selects the first free block in address order whose size
	// is at least the requested size
	StrategyFirstFit Strategy = iota
	// StrategyBestFit selects the smallest free block whose size is at least the
	// requested size, breaking ties in favor of the lowest address
	StrategyBestFit
	// StrategyWorstFit selects the largest free block whose size is at least the
	// requested size, breaking ties in favor of the lowest address
	StrategyWorstFit
)

var strategyMapping = map[Strategy]string{
	StrategyFirstFit: "StrategyFirstFit",
	StrategyBestFit:  "StrategyBestFit",
	StrategyWorstFit: "StrategyWorstFit",
}

func (s Strategy) String() string {
	return strategyMapping[s]
}

// ParseStrategy maps a single-letter strategy token (F, B, or W) to a
// Strategy. Any other token fails with ErrUnknownStrategy.
func ParseStrategy(token string) (Strategy, error) {
	switch token {
	case "F":
		return StrategyFirstFit, nil
	case "B":
		return StrategyBestFit, nil
	case "W":
		return StrategyWorstFit, nil
	}

	return 0, cerrors.Wrapf(ErrUnknownStrategy, "token %q", token)
}
