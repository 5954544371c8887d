package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Anexus5919/RoamiQ/internal/app/models"
	"github.com/Anexus5919/RoamiQ/internal/app/streaming"
	"github.com/Anexus5919/RoamiQ/internal/pkg/logger"
)

type replayOptions struct {
	file      string
	chunkSize int
	maxChunks int
	delay     time.Duration
	asJSON    bool
	verbose   bool
}

type replayResult struct {
	State      streaming.State          `json:"state"`
	Strategy   streaming.Strategy       `json:"strategy,omitempty"`
	Chunks     int                      `json:"chunks"`
	Milestones streaming.Milestones     `json:"milestones"`
	Partial    *models.PartialItinerary `json:"partial,omitempty"`
	Itinerary  *models.Itinerary        `json:"itinerary,omitempty"`
	ErrorKind  streaming.ErrorKind      `json:"error_kind,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

func newRootCmd() *cobra.Command {
	opts := &replayOptions{}

	cmd := &cobra.Command{
		Use:   "roamiq-replay",
		Short: "Replay a captured model stream through the itinerary parser",
		Long: `roamiq-replay feeds a saved model response to the streaming itinerary parser in
fixed-size chunks and reports progress, the early partial and the final outcome.
Use "-" as the file to read from stdin.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "-", "captured model output")
	cmd.Flags().IntVarP(&opts.chunkSize, "chunk-size", "c", 16, "bytes per chunk")
	cmd.Flags().IntVar(&opts.maxChunks, "max-chunks", 0, "fail after this many chunks (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.delay, "delay", 0, "pause between chunks")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the outcome as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log parser decisions")

	return cmd
}

func runReplay(ctx context.Context, stdin io.Reader, out io.Writer, opts *replayOptions) error {
	if opts.chunkSize <= 0 {
		return fmt.Errorf("--chunk-size must be positive, got %d", opts.chunkSize)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	raw, err := readInput(stdin, opts.file)
	if err != nil {
		return err
	}

	l := zap.NewNop()
	if opts.verbose {
		if l, err = logger.New("debug"); err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()
	}

	session := streaming.NewSession(streaming.SessionOptions{MaxChunks: opts.maxChunks, Logger: l})

	var last streaming.Milestones
	outcome, runErr := session.Run(ctx, fileChunks(ctx, raw, opts.chunkSize, opts.delay), func(upd streaming.Update) {
		if opts.asJSON {
			return
		}
		if upd.Milestones != last {
			fmt.Fprintf(out, "[chunk %d] %s\n", session.Chunks(), describe(upd.Milestones))
			last = upd.Milestones
		}
		if upd.Partial != nil {
			fmt.Fprintf(out, "[chunk %d] partial: %s -> %s\n", session.Chunks(), upd.Partial.FromName, upd.Partial.DestinationName)
		}
	})

	result := replayResult{
		State:      session.State(),
		Chunks:     session.Chunks(),
		Milestones: session.Milestones(),
		Partial:    session.Partial(),
	}
	if outcome != nil {
		result.State = outcome.State
		result.Strategy = outcome.Strategy
		result.Itinerary = outcome.Itinerary
		result.Milestones = outcome.Milestones
	}
	var genErr *streaming.GenerationError
	if errors.As(runErr, &genErr) {
		result.ErrorKind = genErr.Kind
		result.Error = genErr.Error()
	} else if runErr != nil {
		result.Error = runErr.Error()
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printSummary(out, result)
	}

	if runErr != nil {
		return fmt.Errorf("replay failed: %w", runErr)
	}
	return nil
}

func readInput(stdin io.Reader, file string) (string, error) {
	if file == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file, err)
	}
	return string(data), nil
}

// fileChunks splits raw into byte chunks, optionally pacing them like a live stream.
func fileChunks(ctx context.Context, raw string, size int, delay time.Duration) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for start := 0; start < len(raw); start += size {
			if delay > 0 && start > 0 {
				select {
				case <-ctx.Done():
					yield("", ctx.Err())
					return
				case <-time.After(delay):
				}
			}
			end := min(start+size, len(raw))
			if !yield(raw[start:end], nil) {
				return
			}
		}
	}
}

func describe(ms streaming.Milestones) string {
	s := ""
	for i, m := range ms {
		if i > 0 {
			s += " | "
		}
		s += fmt.Sprintf("%s=%s", m.ID, m.Status)
	}
	return s
}

func printSummary(out io.Writer, r replayResult) {
	fmt.Fprintf(out, "state: %s\n", r.State)
	fmt.Fprintf(out, "chunks: %d\n", r.Chunks)
	if r.Strategy != "" {
		fmt.Fprintf(out, "strategy: %s\n", r.Strategy)
	}
	if r.Itinerary != nil {
		fmt.Fprintf(out, "destination: %s\n", r.Itinerary.DestinationID())
		fmt.Fprintf(out, "days: %d\n", len(r.Itinerary.Days))
	}
	if r.Error != "" {
		fmt.Fprintf(out, "error (%s): %s\n", r.ErrorKind, r.Error)
	}
}
