// Package engines provides speech.Engine implementations:
//   - Azure Speech REST (SSML in, RIFF PCM out)
//   - gTTS via gtts-cli and ffmpeg
//   - Piper, local neural synthesis
//   - Mock, offline silence for tests and dry runs
//
// Every engine returns a complete WAV file so the compiler can decode and
// normalize all of them the same way.
package engines
