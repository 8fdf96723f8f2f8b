package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/kafka"
	"github.com/spf13/cobra"
)

var (
	flagQueue         string
	flagFromBeginning bool
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print messages published to a queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagQueue == "" {
			return errors.New("--queue is required")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := kafka.NewConsumer(cfg.Kafka, flagQueue, flagFromBeginning, printMessage(cmd.OutOrStdout()))
		return c.Start(ctx)
	},
}

func init() {
	tailCmd.Flags().StringVar(&flagQueue, "queue", "", "topic to read")
	tailCmd.Flags().BoolVar(&flagFromBeginning, "from-beginning", false, "start a new consumer group at the oldest offset")
}

// printMessage writes each decoded message as one JSON line. Undecodable
// values fail the handler so they are not committed.
func printMessage(w io.Writer) kafka.MessageHandler {
	enc := json.NewEncoder(w)
	return func(_ context.Context, key, value []byte) error {
		msg, err := kafka.DecodeJSON[stream.PreparedMessage](value)
		if err != nil {
			return err
		}
		return enc.Encode(msg)
	}
}
