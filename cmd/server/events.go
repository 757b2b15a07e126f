package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evp-nightshift/messenger/internal/kafka"
	"github.com/evp-nightshift/messenger/internal/repository/sqlstore"
)

func newEventsCmd() *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow message lifecycle events published by the outbox worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			brokers := cfg.Brokers()
			if len(brokers) == 0 {
				return errors.New("KAFKA_BROKERS is not set")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := kafka.NewConsumer(brokers, cfg.KafkaTopic, group)
			defer c.Close()

			out := cmd.OutOrStdout()
			return c.Consume(ctx, func(_ context.Context, _, value []byte) error {
				return printEvent(out, value)
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "nightshift-events-cli", "consumer group id")
	return cmd
}

// printEvent writes one line per event. Payloads that are not lifecycle
// events are echoed raw so nothing on the topic is silently skipped.
func printEvent(w io.Writer, value []byte) error {
	var ev sqlstore.LifecycleEvent
	if err := json.Unmarshal(value, &ev); err != nil || ev.Type == "" {
		_, err := fmt.Fprintf(w, "unrecognized event: %s\n", value)
		return err
	}
	_, err := fmt.Fprintf(w, "%s  %-16s  #%d  %-9s  %s  anonymous=%t\n",
		ev.OccurredAt.UTC().Format("2006-01-02T15:04:05Z"), ev.Type, ev.MessageID, ev.Status, ev.Category, ev.Anonymous)
	return err
}
