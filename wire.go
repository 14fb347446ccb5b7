package main

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/charmbracelet/log"
	"github.com/lessonvox/lessonvox/internal/audio"
	"github.com/lessonvox/lessonvox/internal/compiler"
	"github.com/lessonvox/lessonvox/internal/config"
	"github.com/lessonvox/lessonvox/internal/orchestrator"
	"github.com/lessonvox/lessonvox/internal/speech"
	"github.com/lessonvox/lessonvox/internal/speech/engines"
	"github.com/lessonvox/lessonvox/internal/storage"
	"github.com/lessonvox/lessonvox/internal/store"
)

// newCompiler builds the engine and compiler described by cfg. The caller
// closes the returned engine.
func newCompiler(cfg config.Config) (*compiler.Compiler, speech.Engine, error) {
	engine, err := engines.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create speech engine: %w", err)
	}
	log.Debug("Speech engine ready", "engine", engine.Info().Name, "workers", cfg.Workers)

	c := compiler.New(engine, nil, cfg.Voices, compiler.WithWorkers(cfg.Workers))
	return c, engine, nil
}

// newEncoder returns the artifact encoder. A missing ffmpeg degrades to WAV
// with a warning.
func newEncoder(cfg config.Config) (audio.Encoder, error) {
	enc, err := audio.NewEncoder(cfg.Output.Format)
	if errors.Is(err, exec.ErrNotFound) {
		log.Warn("Encoding artifacts as wav", "err", err)
		return enc, nil
	}
	if err != nil {
		return nil, err
	}
	if ff, ok := enc.(*audio.FFmpegEncoder); ok && cfg.Output.Bitrate != "" {
		ff.Bitrate = cfg.Output.Bitrate
	}
	return enc, nil
}

func newRequestStore(cfg config.Config) (store.RequestStore, error) {
	switch cfg.Store.Backend {
	case "supabase":
		return store.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, cfg.Supabase.Table)
	default:
		return store.NewFileStore(cfg.Store.Path), nil
	}
}

func newArtifactStore(ctx context.Context, cfg config.Config) (storage.ArtifactStore, error) {
	switch cfg.Storage.Backend {
	case "supabase":
		return storage.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, cfg.Supabase.Bucket)
	case "drive":
		return storage.NewDriveStoreFromCredentials(ctx, cfg.Storage.DriveCredentials, cfg.Storage.DriveFolderID)
	default:
		return storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.BaseURL), nil
	}
}

// pipeline bundles everything request processing needs.
type pipeline struct {
	compiler     *compiler.Compiler
	engine       speech.Engine
	encoder      audio.Encoder
	requests     store.RequestStore
	orchestrator *orchestrator.Orchestrator
}

func (p *pipeline) Close() error {
	return p.engine.Close()
}

func newPipeline(ctx context.Context, cfg config.Config) (*pipeline, error) {
	c, engine, err := newCompiler(cfg)
	if err != nil {
		return nil, err
	}
	enc, err := newEncoder(cfg)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}
	requests, err := newRequestStore(cfg)
	if err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("unable to open request store: %w", err)
	}
	artifacts, err := newArtifactStore(ctx, cfg)
	if err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("unable to open artifact storage: %w", err)
	}

	return &pipeline{
		compiler:     c,
		engine:       engine,
		encoder:      enc,
		requests:     requests,
		orchestrator: orchestrator.New(requests, artifacts, c, enc),
	}, nil
}
