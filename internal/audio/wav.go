package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNotWAV is returned when decoding bytes that are not a RIFF/WAVE file.
var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

const wavFormatPCM = 1

// Decoder turns raw synthesis output into a segment in the common format.
type Decoder interface {
	Decode(raw []byte) (Segment, error)
}

// WAVDecoder decodes PCM WAV files and normalizes them to Target.
type WAVDecoder struct {
	Target Format
}

// NewWAVDecoder returns a decoder normalizing to the default format.
func NewWAVDecoder() *WAVDecoder {
	return &WAVDecoder{Target: DefaultFormat()}
}

// Decode parses a RIFF/WAVE PCM stream and normalizes it.
func (d *WAVDecoder) Decode(raw []byte) (Segment, error) {
	seg, err := ParseWAV(raw)
	if err != nil {
		return Segment{}, err
	}
	return Normalize(seg, d.Target)
}

// ParseWAV parses a RIFF/WAVE PCM stream without converting it.
func ParseWAV(raw []byte) (Segment, error) {
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return Segment{}, ErrNotWAV
	}

	var (
		f       Format
		haveFmt bool
		data    []byte
	)

	for off := 12; off+8 <= len(raw); {
		id := string(raw[off : off+4])
		size := int(binary.LittleEndian.Uint32(raw[off+4 : off+8]))
		body := off + 8
		end := body + size
		// Streamed WAVs may carry a placeholder size on the data chunk.
		if end > len(raw) || size < 0 {
			end = len(raw)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return Segment{}, fmt.Errorf("wav: short fmt chunk (%d bytes)", end-body)
			}
			chunk := raw[body:end]
			if tag := binary.LittleEndian.Uint16(chunk[0:2]); tag != wavFormatPCM && tag != 0xFFFE {
				return Segment{}, fmt.Errorf("wav: unsupported encoding 0x%04x", tag)
			}
			f = Format{
				Channels:   int(binary.LittleEndian.Uint16(chunk[2:4])),
				SampleRate: int(binary.LittleEndian.Uint32(chunk[4:8])),
				BitDepth:   int(binary.LittleEndian.Uint16(chunk[14:16])),
			}
			haveFmt = true
		case "data":
			data = raw[body:end]
		}

		off = end + size%2
		if end == len(raw) {
			break
		}
	}

	if !haveFmt {
		return Segment{}, errors.New("wav: missing fmt chunk")
	}
	if data == nil {
		return Segment{}, errors.New("wav: missing data chunk")
	}
	if err := f.Validate(); err != nil {
		return Segment{}, fmt.Errorf("wav: %w", err)
	}

	// Drop a trailing partial frame rather than rejecting the stream.
	if bpf := f.BytesPerFrame(); len(data)%bpf != 0 {
		data = data[:len(data)-len(data)%bpf]
	}

	return Segment{Format: f, Data: data}, nil
}

// EncodeWAV writes s as a canonical 44-byte-header PCM WAV file.
func EncodeWAV(s Segment) []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(s.Data))

	blockAlign := s.Format.BytesPerFrame()
	byteRate := s.Format.SampleRate * blockAlign

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(s.Data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(wavFormatPCM))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(s.Format.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(s.Format.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(s.Format.BitDepth))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(s.Data)))
	buf.Write(s.Data)

	return buf.Bytes()
}

// RawDecoder wraps headerless PCM of a known format, as produced by
// engines that stream raw samples.
type RawDecoder struct {
	Source Format
	Target Format
}

// Decode normalizes raw PCM from Source to Target. WAV input is accepted
// too and parsed by its header.
func (d *RawDecoder) Decode(raw []byte) (Segment, error) {
	if seg, err := ParseWAV(raw); err == nil {
		return Normalize(seg, d.Target)
	}
	if err := validatePCM(raw, d.Source); err != nil {
		return Segment{}, err
	}
	return Normalize(Segment{Format: d.Source, Data: raw}, d.Target)
}
