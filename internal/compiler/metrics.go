package compiler

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/lessonvox/lessonvox/internal/lesson"
)

// logResult logs a compilation summary.
func logResult(l *log.Logger, track lesson.TrackKind, res *Result) {
	l.Info("Compilation completed",
		"track", track,
		"segments", res.Segments,
		"dropped", res.Dropped,
		"duration", res.Audio.Duration().Round(10*time.Millisecond),
		"size", humanize.Bytes(uint64(len(res.Audio.Data))),
		"elapsed", res.Elapsed.Round(time.Millisecond))

	l.Debug("Synthesis cache",
		"renders", res.Cache.Renders,
		"hits", res.Cache.Hits,
		"misses", res.Cache.Misses,
		"failures", res.Cache.Failures,
		"cached", humanize.Bytes(uint64(res.Cache.Bytes)))
}
