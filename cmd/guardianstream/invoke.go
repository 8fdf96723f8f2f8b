package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream"
	"github.com/spf13/cobra"
)

var flagEvent string

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Run one invocation and print its envelope",
	Long:  "Reads an event from a file (or stdin with --event -), runs it, and prints the envelope as JSON. Exits non-zero unless the envelope status is 200.",
	RunE: func(cmd *cobra.Command, args []string) error {
		event, err := readEvent(flagEvent, cmd.InOrStdin())
		if err != nil {
			return err
		}
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		env := a.orchestrator.Invoke(cmd.Context(), event)
		return printEnvelope(cmd.OutOrStdout(), env)
	},
}

func init() {
	invokeCmd.Flags().StringVar(&flagEvent, "event", "-", "path to the event JSON, or - for stdin")
}

func readEvent(path string, stdin io.Reader) (map[string]any, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening event: %w", err)
		}
		defer f.Close()
		r = f
	}
	var event map[string]any
	if err := json.NewDecoder(r).Decode(&event); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}
	return event, nil
}

func printEnvelope(w io.Writer, env stream.Envelope) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("writing envelope: %w", err)
	}
	if env.StatusCode != 200 {
		return errUnsuccessful
	}
	return nil
}
