package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lessonvox/lessonvox/internal/lesson"
	"github.com/lessonvox/lessonvox/internal/pause"
	"github.com/lessonvox/lessonvox/internal/script"
	"github.com/spf13/cobra"
)

var (
	parseOnly bool

	scriptCmd = &cobra.Command{
		Use:   "script [LESSON]",
		Short: "Print the script for a lesson",
		Long: paragraph(fmt.Sprintf("\n%s the script a lesson compiles from. With --parse, the argument is a script file and its tokens and diagnostics are listed instead.",
			keyword("Print"))),
		Example: paragraph("lessonvox script lesson.yml --track repetition\nlessonvox script --parse lesson.txt"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runScript,
	}
)

func init() {
	scriptCmd.Flags().StringVarP(&trackName, "track", "t", "bilingual", "track kind (bilingual/repetition)")
	scriptCmd.Flags().BoolVar(&parseOnly, "parse", false, "parse a script and list its tokens")
}

func runScript(cmd *cobra.Command, args []string) error {
	if parseOnly {
		src, err := readScript(args)
		if err != nil {
			return err
		}
		printParse(cmd.OutOrStdout(), script.NewParser(cfg.Voices.Tags()...).Parse(src))
		return nil
	}

	track, err := lesson.ParseTrackKind(trackName)
	if err != nil {
		return err
	}
	pairs, err := readLesson(args)
	if err != nil {
		return err
	}
	s, err := script.Build(track, pairs)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), s)
	return nil
}

func readScript(args []string) (string, error) {
	var (
		b   []byte
		err error
	)
	if len(args) == 0 || args[0] == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("unable to read script: %w", err)
	}
	return string(b), nil
}

func printParse(w io.Writer, res script.Result) {
	for i, tok := range res.Tokens {
		n := faintStyle.Render(fmt.Sprintf("%3d", i))
		switch tok.Kind {
		case script.TokenSpeech:
			fmt.Fprintf(w, "%s %s %s\n", n, speechStyle.Render("["+tok.Tag+"]"), tok.Text)
		case script.TokenSilence:
			fmt.Fprintf(w, "%s %s\n", n, silenceStyle.Render("["+pause.Format(tok.Seconds)+"]"))
		}
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintln(w, warnStyle.Render("warning"), d.String())
	}

	summary := []string{
		humanize.Comma(int64(res.SpeechCount())) + " " + plural(res.SpeechCount(), "utterance"),
		pause.Format(res.TotalSilence()) + " of silence",
	}
	if n := len(res.Diagnostics); n > 0 {
		summary = append(summary, fmt.Sprintf("%d %s", n, plural(n, "warning")))
	}
	fmt.Fprintln(w, faintStyle.Render(strings.Join(summary, ", ")))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
