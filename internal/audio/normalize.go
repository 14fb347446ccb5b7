package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Normalize converts s to format target: bit depth, channel count and sample
// rate are all adjusted. A segment already in the target format is returned
// unchanged.
func Normalize(s Segment, target Format) (Segment, error) {
	if s.Format == target {
		return s, nil
	}
	if err := s.Format.Validate(); err != nil {
		return Segment{}, fmt.Errorf("source: %w", err)
	}
	if err := target.Validate(); err != nil {
		return Segment{}, fmt.Errorf("target: %w", err)
	}
	if err := validatePCM(s.Data, s.Format); err != nil {
		return Segment{}, err
	}

	frames := toFloat(s.Data, s.Format)

	frames, err := remix(frames, target.Channels)
	if err != nil {
		return Segment{}, err
	}
	frames = resample(frames, s.Format.SampleRate, target.SampleRate)

	return Segment{Format: target, Data: fromFloat(frames, target.BitDepth)}, nil
}

// toFloat decodes interleaved PCM into frames of samples in [-1, 1].
// 8-bit PCM is unsigned as in WAV; wider depths are signed.
func toFloat(data []byte, f Format) [][]float64 {
	width := f.BitDepth / 8
	n := len(data) / f.BytesPerFrame()
	frames := make([][]float64, n)

	off := 0
	for i := range frames {
		frame := make([]float64, f.Channels)
		for ch := range frame {
			b := data[off : off+width]
			switch f.BitDepth {
			case 8:
				frame[ch] = (float64(b[0]) - 128) / 128
			case 16:
				frame[ch] = float64(int16(binary.LittleEndian.Uint16(b))) / 32768
			case 24:
				v := int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
				frame[ch] = float64(v) / 8388608
			case 32:
				frame[ch] = float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648
			}
			off += width
		}
		frames[i] = frame
	}
	return frames
}

// fromFloat encodes frames as interleaved little-endian PCM.
func fromFloat(frames [][]float64, bitDepth int) []byte {
	width := bitDepth / 8
	channels := 0
	if len(frames) > 0 {
		channels = len(frames[0])
	}
	out := make([]byte, len(frames)*channels*width)

	off := 0
	for _, frame := range frames {
		for _, v := range frame {
			v = math.Max(-1, math.Min(1, v))
			switch bitDepth {
			case 8:
				out[off] = byte(math.Round(v*127) + 128)
			case 16:
				binary.LittleEndian.PutUint16(out[off:], uint16(int16(math.Round(v*32767))))
			case 24:
				x := int32(math.Round(v * 8388607))
				out[off], out[off+1], out[off+2] = byte(x), byte(x>>8), byte(x>>16)
			case 32:
				binary.LittleEndian.PutUint32(out[off:], uint32(int32(math.Round(v*2147483647))))
			}
			off += width
		}
	}
	return out
}

// remix converts frames to the given channel count. Downmixing averages
// channels; mono is duplicated when upmixing.
func remix(frames [][]float64, channels int) ([][]float64, error) {
	if len(frames) == 0 || len(frames[0]) == channels {
		return frames, nil
	}

	src := len(frames[0])
	switch {
	case channels == 1:
		for i, frame := range frames {
			var sum float64
			for _, v := range frame {
				sum += v
			}
			frames[i] = []float64{sum / float64(src)}
		}
	case src == 1:
		for i, frame := range frames {
			out := make([]float64, channels)
			for ch := range out {
				out[ch] = frame[0]
			}
			frames[i] = out
		}
	default:
		return nil, fmt.Errorf("cannot remix %d channels to %d", src, channels)
	}
	return frames, nil
}

// resample performs simple linear interpolation between sample rates.
func resample(frames [][]float64, from, to int) [][]float64 {
	if from == to || len(frames) == 0 {
		return frames
	}

	ratio := float64(to) / float64(from)
	n := int(math.Round(float64(len(frames)) * ratio))
	out := make([][]float64, n)

	for i := range out {
		pos := float64(i) / ratio
		idx := int(pos)
		frac := pos - float64(idx)

		if idx >= len(frames)-1 {
			out[i] = append([]float64(nil), frames[len(frames)-1]...)
			continue
		}

		a, b := frames[idx], frames[idx+1]
		frame := make([]float64, len(a))
		for ch := range frame {
			frame[ch] = a[ch]*(1-frac) + b[ch]*frac
		}
		out[i] = frame
	}
	return out
}
