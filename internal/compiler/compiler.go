// Package compiler turns script tokens into one audio clip. Speech tokens
// are rendered through a per-compilation synthesis cache and decoded into a
// common format, silence tokens are generated, and the segments are folded
// together in token order.
package compiler

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lessonvox/lessonvox/internal/audio"
	"github.com/lessonvox/lessonvox/internal/cache"
	"github.com/lessonvox/lessonvox/internal/lesson"
	"github.com/lessonvox/lessonvox/internal/pause"
	"github.com/lessonvox/lessonvox/internal/script"
	"github.com/lessonvox/lessonvox/internal/speech"
	"github.com/lessonvox/lessonvox/internal/voice"
	"golang.org/x/sync/errgroup"
)

// Compiler renders token streams to audio. It is safe for concurrent use;
// every Compile call gets its own cache.
type Compiler struct {
	renderer speech.Renderer
	decoder  audio.Decoder
	voices   voice.Table
	parser   *script.Parser

	format  audio.Format
	workers int
	logger  *log.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithWorkers resolves up to n speech tokens concurrently. Output order is
// unaffected. The default is 1.
func WithWorkers(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFormat sets the common format. The decoder must produce it.
func WithFormat(f audio.Format) Option {
	return func(c *Compiler) {
		c.format = f
	}
}

// New creates a compiler. A nil decoder selects audio.NewWAVDecoder.
func New(renderer speech.Renderer, decoder audio.Decoder, voices voice.Table, opts ...Option) *Compiler {
	c := &Compiler{
		renderer: renderer,
		decoder:  decoder,
		voices:   voices,
		parser:   script.NewParser(voices.Tags()...),
		format:   audio.DefaultFormat(),
		workers:  1,
		logger:   log.WithPrefix("compiler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.decoder == nil {
		c.decoder = &audio.WAVDecoder{Target: c.format}
	}
	return c
}

// Parser returns the parser configured with the compiler's language tags.
func (c *Compiler) Parser() *script.Parser {
	return c.parser
}

// Result is a successful compilation.
type Result struct {
	Audio    audio.Segment
	Segments int       // Segments appended, speech and silence
	Dropped  int       // Segments skipped after a failure
	Failures []Failure // One entry per dropped segment
	Cache    cache.Stats
	Elapsed  time.Duration
}

// Compile renders tokens for a track. Per-token failures are logged and
// counted in Result.Dropped; they never abort compilation. If no segment
// survives, Compile returns ErrEmptyResult. A canceled context aborts.
func (c *Compiler) Compile(ctx context.Context, tokens []script.Token, track lesson.TrackKind) (*Result, error) {
	start := time.Now()
	synth := cache.NewSynthesisCache(c.renderer)

	slots := make([]slot, len(tokens))
	if err := c.resolve(ctx, synth, tokens, track, slots); err != nil {
		return nil, err
	}

	res := &Result{}
	segments := make([]audio.Segment, 0, len(slots))
	for i, s := range slots {
		if s.failure != nil {
			res.Dropped++
			res.Failures = append(res.Failures, *s.failure)
			c.logger.Warn("Dropped segment", "index", i, "tag", s.failure.Tag,
				"kind", s.failure.Kind, "err", s.failure.Err)
			continue
		}
		segments = append(segments, s.segment)
	}
	res.Segments = len(segments)

	res.Cache = synth.Stats()
	res.Elapsed = time.Since(start)

	if res.Segments == 0 {
		c.logger.Warn("Compilation produced no audio", "tokens", len(tokens), "dropped", res.Dropped)
		return nil, fmt.Errorf("%w (%d tokens, %d dropped)", ErrEmptyResult, len(tokens), res.Dropped)
	}

	var err error
	if res.Audio, err = audio.Concat(segments); err != nil {
		return nil, err
	}

	logResult(c.logger, track, res)
	return res, nil
}

// CompileScript parses s and compiles the resulting tokens. Grammar
// diagnostics are logged.
func (c *Compiler) CompileScript(ctx context.Context, s string, track lesson.TrackKind) (*Result, error) {
	parsed := c.parser.Parse(s)
	for _, d := range parsed.Diagnostics {
		c.logger.Warn("Script diagnostic", "kind", d.Kind, "offset", d.Offset, "tag", d.Tag, "text", d.Text)
	}
	return c.Compile(ctx, parsed.Tokens, track)
}

type slot struct {
	segment audio.Segment
	failure *Failure
}

// resolve fills slots in token order, sequentially or with a bounded pool.
func (c *Compiler) resolve(ctx context.Context, synth *cache.SynthesisCache, tokens []script.Token, track lesson.TrackKind, slots []slot) error {
	if c.workers <= 1 {
		for i, tok := range tokens {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots[i] = c.segment(ctx, synth, i, tok, track)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, tok := range tokens {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = c.segment(gctx, synth, i, tok, track)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// segment produces the audio for one token.
func (c *Compiler) segment(ctx context.Context, synth *cache.SynthesisCache, i int, tok script.Token, track lesson.TrackKind) slot {
	fail := func(kind FailureKind, err error) slot {
		return slot{failure: &Failure{Index: i, Tag: tok.Tag, Text: tok.Text, Kind: kind, Err: err}}
	}

	if tok.Kind == script.TokenSilence {
		if math.IsNaN(tok.Seconds) || tok.Seconds > pause.MaxExplicit {
			return fail(FailurePause, fmt.Errorf("silence of %vs exceeds %s", tok.Seconds, pause.Format(pause.MaxExplicit)))
		}
		return slot{segment: audio.Silence(tok.Seconds, c.format)}
	}

	key, ok := c.voices.Resolve(tok.Tag, track)
	if !ok {
		return fail(FailureUnknownVoice, fmt.Errorf("no voice for tag %q on %s track", tok.Tag, track))
	}

	raw, err := synth.Resolve(ctx, key, tok.Text)
	if err != nil {
		return fail(FailureRender, err)
	}

	seg, err := c.decoder.Decode(raw)
	if err != nil {
		return fail(FailureDecode, err)
	}
	if seg.Format != c.format {
		return fail(FailureDecode, fmt.Errorf("%w: decoder produced %s, want %s", audio.ErrFormatMismatch, seg.Format, c.format))
	}
	return slot{segment: seg}
}
