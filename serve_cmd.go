package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/lessonvox/lessonvox/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	addr string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the lesson compilation API",
		Long: paragraph(fmt.Sprintf("\n%s the HTTP API for building, parsing and compiling scripts and for processing lesson requests.",
			keyword("Serve"))),
		Example: paragraph("lessonvox serve\nlessonvox serve --addr 127.0.0.1:9000 --engine mock"),
		Args:    cobra.NoArgs,
		RunE:    runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close() //nolint:errcheck

	srv := server.New(server.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, p.compiler, p.encoder, p.orchestrator, p.requests)

	listen := cfg.Server.Addr
	if addr != "" {
		listen = addr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Listening", "addr", listen)
		return srv.Listen(listen)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		return srv.Shutdown()
	})
	return g.Wait()
}
