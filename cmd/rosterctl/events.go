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

	"roster/internal/platform/kafka/consumer"
	"roster/internal/users/events"
)

func newEventsCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		group     string
		fromStart bool
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail change events from Kafka.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := env(cmd, stderr)
			if err != nil {
				return err
			}
			if cfg.Kafka.Brokers == "" {
				return errors.New("KAFKA_BROKERS is not set")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			seen := 0
			handler := consumer.HandlerFunc(func(_ context.Context, msg *consumer.Message) error {
				if limit > 0 && seen >= limit {
					return nil
				}
				fmt.Fprintln(stdout, formatEvent(msg))
				seen++
				if limit > 0 && seen >= limit {
					cancel()
				}
				return nil
			})

			c, err := consumer.New(consumer.Config{
				Brokers:   cfg.Kafka.Brokers,
				GroupID:   group,
				Topics:    []string{cfg.Kafka.Topic},
				FromStart: fromStart,
			}, handler, log)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "consumer group; offsets are committed when set")
	cmd.Flags().BoolVar(&fromStart, "from-start", false, "read the topic from the earliest offset")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after this many events")
	return cmd
}

func formatEvent(msg *consumer.Message) string {
	var e events.Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return fmt.Sprintf("%d:%d undecodable event: %s", msg.Partition, msg.Offset, msg.Value)
	}
	switch {
	case e.User != nil:
		return fmt.Sprintf("%s %s user_id=%s pass_id=%s", e.OccurredAt.Format(time.RFC3339), e.Type, e.User.UserID, e.PassID)
	case e.Pass != nil:
		return fmt.Sprintf("%s %s pass_id=%s total=%d success=%d published=%t",
			e.OccurredAt.Format(time.RFC3339), e.Type, e.PassID, e.Pass.Total, e.Pass.Success, e.Pass.Published)
	default:
		return fmt.Sprintf("%s %s pass_id=%s", e.OccurredAt.Format(time.RFC3339), e.Type, e.PassID)
	}
}
