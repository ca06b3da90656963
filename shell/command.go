package shell

import (
	"strconv"
	"strings"

	"github.com/memkit/memsim/arena"
	"github.com/pkg/errors"
)

// CommandKind identifies which engine operation a parsed command line maps to.
type CommandKind uint32

const (
	// CommandRequest allocates a block for a new process (RQ <pid> <size> <F|B|W>)
	CommandRequest CommandKind = iota
	// CommandRelease frees the block occupied by a process (RL <pid>)
	CommandRelease
	// CommandCompact consolidates all free space into one block (C)
	CommandCompact
	// CommandStatus prints the human-readable block report (STAT)
	CommandStatus
	// CommandStats prints a machine-readable JSON dump of the arena (JSON)
	CommandStats
	// CommandExit terminates the command loop (X)
	CommandExit
)

var commandKindMapping = map[CommandKind]string{
	CommandRequest: "CommandRequest",
	CommandRelease: "CommandRelease",
	CommandCompact: "CommandCompact",
	CommandStatus:  "CommandStatus",
	CommandStats:   "CommandStats",
	CommandExit:    "CommandExit",
}

func (k CommandKind) String() string {
	return commandKindMapping[k]
}

// Command is one parsed, validated line of the command stream. Fields beyond
// Kind are populated only for the kinds that use them.
type Command struct {
	Kind      CommandKind
	ProcessID string
	Size      int
	Strategy  arena.Strategy
}

// ParseCommand parses and validates a single command line. Malformed lines
// fail here and never reach the engine.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errors.New("empty command")
	}

	switch fields[0] {
	case "RQ":
		if len(fields) != 4 {
			return Command{}, errors.New("invalid RQ command format, use: RQ <ProcessID> <Size> <Strategy>")
		}

		size, err := strconv.Atoi(fields[2])
		if err != nil {
			return Command{}, errors.Errorf("invalid RQ size %q, must be an integer", fields[2])
		}
		if size < 1 {
			return Command{}, errors.Errorf("invalid RQ size %d, must be positive", size)
		}

		strategy, err := arena.ParseStrategy(fields[3])
		if err != nil {
			return Command{}, err
		}

		return Command{
			Kind:      CommandRequest,
			ProcessID: fields[1],
			Size:      size,
			Strategy:  strategy,
		}, nil

	case "RL":
		if len(fields) != 2 {
			return Command{}, errors.New("invalid RL command format, use: RL <ProcessID>")
		}

		return Command{
			Kind:      CommandRelease,
			ProcessID: fields[1],
		}, nil

	case "C":
		return Command{Kind: CommandCompact}, nil

	case "STAT":
		return Command{Kind: CommandStatus}, nil

	case "JSON":
		return Command{Kind: CommandStats}, nil

	case "X":
		return Command{Kind: CommandExit}, nil
	}

	return Command{}, errors.Errorf("unknown command %q", fields[0])
}
