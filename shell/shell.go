package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	cerrors "github.com/cockroachdb/errors"
	"github.com/memkit/memsim/arena"
	"golang.org/x/exp/slog"
)

const prompt = "allocator> "

// Shell drives an arena.Arena from a line-oriented command stream. It parses
// and validates each line, calls into the engine, and renders the engine's
// results for a human. Engine failures are surfaced as output and the loop
// continues; the shell itself fails only when reading the stream fails.
type Shell struct {
	arena  *arena.Arena
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

// New creates a Shell that reads commands from in, writes results to out, and
// logs diagnostics to logger.
func New(a *arena.Arena, in io.Reader, out io.Writer, logger *slog.Logger) *Shell {
	return &Shell{
		arena:  a,
		in:     in,
		out:    out,
		logger: logger,
	}
}

// Run processes commands until an X command or the end of the input stream.
func (s *Shell) Run() error {
	scanner := bufio.NewScanner(s.in)

	fmt.Fprint(s.out, prompt)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			fmt.Fprint(s.out, prompt)
			continue
		}

		cmd, err := ParseCommand(line)
		if err != nil {
			fmt.Fprintf(s.out, "%s\n", err)
			s.logger.LogAttrs(context.Background(), slog.LevelWarn, "rejected command",
				slog.String("line", line),
				slog.Any("error", err))
			fmt.Fprint(s.out, prompt)
			continue
		}

		if cmd.Kind == CommandExit {
			if !s.arena.IsEmpty() {
				s.arena.DebugLogAllAllocations(s.logger, arena.LogUnreleasedProcess)
			}
			return nil
		}

		s.dispatch(cmd)
		fmt.Fprint(s.out, prompt)
	}

	return scanner.Err()
}

func (s *Shell) dispatch(cmd Command) {
	switch cmd.Kind {
	case CommandRequest:
		start, end, err := s.arena.Request(cmd.ProcessID, cmd.Size, cmd.Strategy)
		switch {
		case cerrors.Is(err, arena.ErrDuplicateProcess):
			fmt.Fprintf(s.out, "Process %s is already allocated. Try a different ID.\n", cmd.ProcessID)
		case cerrors.Is(err, arena.ErrInsufficientSpace):
			fmt.Fprintf(s.out, "No sufficient space to allocate process %s (%d bytes)\n", cmd.ProcessID, cmd.Size)
		case err != nil:
			fmt.Fprintf(s.out, "%s\n", err)
			s.logger.LogAttrs(context.Background(), slog.LevelError, "request failed",
				slog.String("process", cmd.ProcessID),
				slog.Int("size", cmd.Size),
				slog.Any("error", err))
		default:
			fmt.Fprintf(s.out, "Allocated process %s at addresses [%d : %d)\n", cmd.ProcessID, start, end)
		}

	case CommandRelease:
		err := s.arena.Release(cmd.ProcessID)
		if cerrors.Is(err, arena.ErrProcessNotFound) {
			fmt.Fprintf(s.out, "Process %s not found in memory.\n", cmd.ProcessID)
		} else if err != nil {
			fmt.Fprintf(s.out, "%s\n", err)
			s.logger.LogAttrs(context.Background(), slog.LevelError, "release failed",
				slog.String("process", cmd.ProcessID),
				slog.Any("error", err))
		}

	case CommandCompact:
		s.arena.Compact()

	case CommandStatus:
		s.writeReport()

	case CommandStats:
		fmt.Fprintf(s.out, "%s\n", s.arena.BuildStatsString())
	}
}

func (s *Shell) writeReport() {
	fmt.Fprintf(s.out, "Total available space: %d bytes\n", s.arena.SumFreeSize())

	for _, info := range s.arena.Report() {
		owner := info.Owner
		if info.Free {
			owner = "FREE"
		}
		fmt.Fprintf(s.out, "Addresses [%d : %d) -> Process: %s\n", info.Start, info.End, owner)
	}
}
