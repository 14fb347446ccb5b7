package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/lessonvox/lessonvox/internal/audio"
	"github.com/lessonvox/lessonvox/internal/lesson"
	"github.com/lessonvox/lessonvox/internal/script"
	"github.com/spf13/cobra"
)

var (
	trackName  string
	scriptFile string
	outputFile string
	play       bool

	compileCmd = &cobra.Command{
		Use:   "compile [LESSON]",
		Short: "Compile a lesson into an audio track",
		Long: paragraph(fmt.Sprintf("\n%s a lesson file of sentence pairs, or a ready-made script, into a single audio track. Use - to read the lesson from stdin.",
			keyword("Compile"))),
		Example: paragraph("lessonvox compile lesson.yml -o lesson.mp3\nlessonvox compile --script lesson.txt --track repetition --play"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}
)

func init() {
	compileCmd.Flags().StringVarP(&trackName, "track", "t", "bilingual", "track kind (bilingual/repetition)")
	compileCmd.Flags().StringVarP(&scriptFile, "script", "s", "", "compile a script file instead of a lesson")
	compileCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write the encoded track to this file")
	compileCmd.Flags().BoolVarP(&play, "play", "p", false, "play the track when done")
}

func runCompile(cmd *cobra.Command, args []string) error {
	track, err := lesson.ParseTrackKind(trackName)
	if err != nil {
		return err
	}
	if outputFile == "" && !play {
		return errors.New("nothing to do: use --output and/or --play")
	}

	src, err := compileSource(track, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	c, engine, err := newCompiler(cfg)
	if err != nil {
		return err
	}
	defer engine.Close() //nolint:errcheck

	res, err := c.CompileScript(ctx, src, track)
	if err != nil {
		return err
	}
	for _, f := range res.Failures {
		fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("dropped"), f.Error())
	}

	if outputFile != "" {
		if err := writeTrack(ctx, res.Audio); err != nil {
			return err
		}
	}
	if play {
		return playTrack(ctx, res.Audio)
	}
	return nil
}

// compileSource returns the script to compile: the --script file as is, or
// a script built from the lesson argument.
func compileSource(track lesson.TrackKind, args []string) (string, error) {
	if scriptFile != "" {
		if len(args) > 0 {
			return "", errors.New("use either a lesson or --script, not both")
		}
		b, err := os.ReadFile(scriptFile)
		if err != nil {
			return "", fmt.Errorf("unable to read script: %w", err)
		}
		return string(b), nil
	}

	pairs, err := readLesson(args)
	if err != nil {
		return "", err
	}
	return script.Build(track, pairs)
}

func readLesson(args []string) ([]lesson.SentencePair, error) {
	if len(args) == 0 || args[0] == "-" {
		return lesson.ReadPairs(os.Stdin)
	}
	return lesson.LoadPairs(args[0])
}

func writeTrack(ctx context.Context, s audio.Segment) error {
	enc, err := newEncoder(cfg)
	if err != nil {
		return err
	}
	if enc, err = outputEncoder(outputFile, enc); err != nil {
		return err
	}

	b, err := enc.Encode(ctx, s)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outputFile != "-" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("unable to create output: %w", err)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}

	log.Info("Wrote track", "path", outputFile, "size", humanize.Bytes(uint64(len(b))), "duration", s.Duration())
	return nil
}

// outputEncoder picks the encoder whose bytes match the output file's
// extension. Stdout and extensionless names use the configured encoder.
func outputEncoder(path string, configured audio.Encoder) (audio.Encoder, error) {
	if path == "-" {
		return configured, nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case "", configured.Ext():
		return configured, nil
	case ".wav":
		return audio.WAVEncoder{}, nil
	case ".mp3":
		enc, err := audio.NewEncoder("mp3")
		if err != nil {
			return nil, fmt.Errorf("cannot write %s: %w", path, err)
		}
		if ff, ok := enc.(*audio.FFmpegEncoder); ok && cfg.Output.Bitrate != "" {
			ff.Bitrate = cfg.Output.Bitrate
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("unsupported output extension %q, use .mp3 or .wav", ext)
	}
}

func playTrack(ctx context.Context, s audio.Segment) error {
	p, err := audio.NewPlayer(s.Format)
	if err != nil {
		return err
	}
	log.Info("Playing track", "duration", s.Duration())
	if err := p.Play(ctx, s); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
