// Package audio holds the in-memory PCM segments a lesson clip is assembled
// from: silence generation, WAV decoding with normalization to one common
// format, ordered concatenation, encoding and local playback via oto/v3.
package audio
