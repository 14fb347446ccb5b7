package cache

import (
	"github.com/lessonvox/lessonvox/internal/voice"
)

// Key identifies a cached render.
type Key struct {
	Voice voice.Key
	Text  string
}

// String returns a form usable as a map or singleflight key.
func (k Key) String() string {
	return string(k.Voice) + "\x00" + k.Text
}

// Stats holds cache performance metrics.
type Stats struct {
	Entries int   // Number of cached renders
	Bytes   int64 // Total size of cached renders

	Hits     int64 // Lookups answered from the cache
	Misses   int64 // Lookups that had to wait for a render
	Renders  int64 // Calls made to the renderer
	Failures int64 // Renders that returned an error
}

// HitRate returns hits / (hits + misses).
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}
