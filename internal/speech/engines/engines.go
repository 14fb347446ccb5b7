package engines

import (
	"fmt"

	"github.com/lessonvox/lessonvox/internal/config"
	"github.com/lessonvox/lessonvox/internal/speech"
)

// fallbackMaxFailures is how many consecutive primary failures trigger a
// switch to the fallback engine.
const fallbackMaxFailures = 3

// New returns the engine named by cfg.Engine, wrapped with cfg.Fallback
// when one is set.
func New(cfg config.Config) (speech.Engine, error) {
	primary, err := byName(cfg.Engine, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Fallback == "" || cfg.Fallback == cfg.Engine {
		return primary, nil
	}

	fallback, err := byName(cfg.Fallback, cfg)
	if err != nil {
		primary.Close() //nolint:errcheck
		return nil, fmt.Errorf("fallback: %w", err)
	}
	return NewFallbackEngine(primary, fallback, fallbackMaxFailures), nil
}

func byName(name string, cfg config.Config) (speech.Engine, error) {
	var (
		engine speech.Engine
		err    error
	)
	switch name {
	case "azure":
		engine, err = newEngine(NewAzureEngine(cfg.Azure))
	case "gtts":
		engine, err = newEngine(NewGTTSEngine(cfg.GTTS))
	case "piper":
		engine, err = newEngine(NewPiperEngine(cfg.Piper))
	case "mock":
		engine = NewMockEngine(cfg.Mock)
	default:
		err = fmt.Errorf("%w: %q", speech.ErrUnknownEngine, name)
	}
	return engine, err
}

// newEngine avoids returning a typed nil inside a non-nil interface.
func newEngine[E speech.Engine](e E, err error) (speech.Engine, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}
