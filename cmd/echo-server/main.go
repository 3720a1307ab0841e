package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"stream-server/server"
	"stream-server/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type flags struct {
	Listen   string
	Timeout  int
	MaxConns int
	Buffer   int
	Verbose  bool
}

func main() {
	f := new(flags)

	command := &cobra.Command{
		Use:   "echo-server",
		Short: "TCP echo server with per-operation deadlines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
		SilenceUsage: true,
	}

	command.Flags().StringVarP(&f.Listen, "listen", "l", ":7007", "Address to listen on.")
	command.Flags().IntVarP(&f.Timeout, "timeout", "t", 1, "Per-operation timeout in seconds.")
	command.Flags().IntVar(&f.MaxConns, "max-conns", 128, "Maximum number of connections served at once.")
	command.Flags().IntVar(&f.Buffer, "buffer", 4096, "Receive buffer size in bytes.")
	command.Flags().BoolVarP(&f.Verbose, "verbose", "v", false, "Enable debug logging.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, f *flags) error {
	level := slog.LevelInfo
	if f.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	l, err := tcp.Listen(f.Listen)
	if err != nil {
		return err
	}

	s, err := server.New(l, logger, clock.New(), server.Echo(f.Buffer), server.Options{
		TimeoutSeconds: f.Timeout,
		MaxConns:       f.MaxConns,
		BufferSize:     f.Buffer,
	})
	if err != nil {
		_ = l.Close()
		return errors.Wrap(err, "creating server")
	}
	s.Start()

	<-ctx.Done()
	logger.Info("shutting down")

	return s.Close()
}
