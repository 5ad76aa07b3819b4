package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	pfnats "github.com/Strob0t/PromptForge/internal/adapter/nats"
	"github.com/Strob0t/PromptForge/internal/port/messagequeue"
)

func newWatchCmd(a *app) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print prompt events published by consoles as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.NATS.URL == "" {
				return errors.New("nats is not configured, set NATS_URL")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			queue, err := pfnats.Connect(ctx, a.cfg.NATS.URL, a.cfg.NATS.SubjectPrefix)
			if err != nil {
				return err
			}
			defer func() { _ = queue.Close() }()

			filter := messagequeue.Subject(a.cfg.NATS.SubjectPrefix, subject)
			cancel, err := queue.Subscribe(ctx, filter, printEvent(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			defer cancel()

			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s, Ctrl-C to stop\n", filter)
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", ">", "subject suffix to follow, e.g. composition.activated")
	return cmd
}

// printEvent writes one JSON line per event.
func printEvent(w io.Writer) messagequeue.Handler {
	enc := json.NewEncoder(w)
	return func(_ context.Context, subject string, data []byte) error {
		return enc.Encode(struct {
			Time    time.Time       `json:"time"`
			Subject string          `json:"subject"`
			Data    json.RawMessage `json:"data"`
		}{time.Now().UTC(), subject, data})
	}
}
