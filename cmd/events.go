/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/coursehub/apiserver/internal/mq"
	"github.com/coursehub/apiserver/types"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume payment events and log them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		queue, err := mq.NewFromConfig(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is required")
		}
		defer queue.Close()

		zerolog.Ctx(ctx).Info().Str("channel", cfg.MQ.PaymentsChannel).Msg("consuming payment events")
		err = queue.Subscribe(ctx, cfg.MQ.PaymentsChannel, handlePaymentEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

// handlePaymentEvent logs one PaymentRecorded event. Undecodable payloads are
// logged and acknowledged so they are not redelivered forever.
func handlePaymentEvent(ctx context.Context, msg mq.Message) error {
	logger := zerolog.Ctx(ctx).With().Str("message_id", msg.ID).Logger()

	var event types.PaymentRecorded
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Warn().Err(err).Str("type", msg.Attributes["type"]).Msg("dropping malformed payment event")
		return nil
	}

	logger.Info().
		Int("payment_id", event.PaymentID).
		Int("user_id", event.UserID).
		Int("course_id", event.CourseID).
		Str("payment_method", event.PaymentMethod).
		Time("recorded_at", event.RecordedAt).
		Msg("payment recorded")
	return nil
}
