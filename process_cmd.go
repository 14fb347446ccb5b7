package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lessonvox/lessonvox/internal/orchestrator"
	"github.com/lessonvox/lessonvox/internal/store"
	"github.com/spf13/cobra"
)

var (
	watch    bool
	interval time.Duration

	processCmd = &cobra.Command{
		Use:   "process [ID]",
		Short: "Render approved lesson requests",
		Long: paragraph(fmt.Sprintf("\n%s every approved request in the request store, or only the one with the given ID, and publish the tracks to artifact storage.",
			keyword("Render"))),
		Example: paragraph("lessonvox process\nlessonvox process 42\nlessonvox process --watch --interval 1m"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runProcess,
	}
)

func init() {
	processCmd.Flags().BoolVar(&watch, "watch", false, "keep running and process new requests as they are approved")
	processCmd.Flags().DurationVar(&interval, "interval", time.Minute, "polling interval in watch mode (0 disables polling)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close() //nolint:errcheck

	if len(args) == 1 {
		if watch {
			return errors.New("--watch cannot be used with a request ID")
		}
		o, err := p.orchestrator.ProcessByID(ctx, args[0])
		if err != nil {
			return err
		}
		printOutcome(cmd, o)
		if o.Err != nil {
			return o.Err
		}
		return nil
	}

	if watch || cfg.Store.Watch {
		err := p.orchestrator.Watch(ctx, interval, fileTrigger(ctx, p.requests))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	sum, err := p.orchestrator.ProcessPending(ctx)
	for _, o := range sum.Outcomes {
		printOutcome(cmd, o)
	}
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d requests failed", sum.Failed, sum.Found)
	}
	return nil
}

// fileTrigger returns change notifications for file-backed stores, or nil.
func fileTrigger(ctx context.Context, requests store.RequestStore) <-chan struct{} {
	fs, ok := requests.(*store.FileStore)
	if !ok {
		return nil
	}
	ch, err := fs.Watch(ctx)
	if err != nil {
		log.Warn("Not watching request file, polling only", "path", fs.Path(), "err", err)
		return nil
	}
	return ch
}

func printOutcome(cmd *cobra.Command, o orchestrator.Outcome) {
	w := cmd.OutOrStdout()
	if o.Skipped {
		fmt.Fprintf(w, "%s %s %s\n", faintStyle.Render("skipped"), o.RequestID, o.Filename)
		return
	}
	if o.Err != nil {
		fmt.Fprintf(w, "%s %s %s: %v\n", warnStyle.Render("failed"), o.RequestID, o.Filename, o.Err)
		return
	}
	fmt.Fprintf(w, "%s %s %s %s\n", speechStyle.Render("done"), o.RequestID, o.Filename, faintStyle.Render(o.URL))
}
