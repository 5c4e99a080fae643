/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/notekeeper/apiserver/config"
	"github.com/notekeeper/apiserver/internal/logger"
	"github.com/notekeeper/apiserver/internal/mq"
	"github.com/notekeeper/apiserver/types"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the domain event stream",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log every event published to MQ_EVENTS_CHANNEL",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		log := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bus, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if bus == nil {
			return fmt.Errorf("MQ_BACKEND is %q; nothing to tail", cfg.MQ.Backend)
		}
		defer bus.Close()

		log.Info().Str("channel", bus.Channel()).Msg("tailing events")
		err = bus.Tail(ctx, func(e types.Event) error {
			log.Info().
				Str("type", string(e.Type)).
				Int64("user_id", e.UserID).
				Str("resource_id", e.ResourceID).
				Time("occurred_at", e.OccurredAt).
				Msg("event")
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
