package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/memkit/memsim/arena"
	"github.com/memkit/memsim/shell"
	"golang.org/x/exp/slog"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <capacity>\n", os.Args[0])
		os.Exit(1)
	}

	capacity, err := strconv.Atoi(os.Args[1])
	if err != nil {
		logger.LogAttrs(context.Background(), slog.LevelError, "invalid capacity argument",
			slog.String("argument", os.Args[1]),
			slog.Any("error", err))
		os.Exit(1)
	}

	a, err := arena.New(capacity)
	if err != nil {
		logger.LogAttrs(context.Background(), slog.LevelError, "failed to create arena",
			slog.Int("capacity", capacity),
			slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("Initialize free space: %d bytes\n", a.SumFreeSize())

	sh := shell.New(a, os.Stdin, os.Stdout, logger)
	if err := sh.Run(); err != nil {
		logger.LogAttrs(context.Background(), slog.LevelError, "command stream failed",
			slog.Any("error", err))
		os.Exit(1)
	}
}
