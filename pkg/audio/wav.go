// Package audio provides the small amount of PCM plumbing the voice pipeline
// needs: a RIFF/WAV codec for the clips exchanged with clients, and helpers to
// downmix, resample, and normalise 16-bit PCM for speech recognition.
//
// The package deliberately supports only the formats that actually cross the
// service boundary — 16-bit little-endian PCM, mono or stereo. Anything else
// is rejected rather than guessed at.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Clip is a decoded audio clip: raw 16-bit little-endian PCM plus its format.
type Clip struct {
	// Data is interleaved 16-bit little-endian PCM.
	Data []byte

	// SampleRate in Hz (e.g. 16000 for STT input, 22050 for Piper output).
	SampleRate int

	// Channels is 1 for mono or 2 for stereo.
	Channels int
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	return float64(len(c.Data)) / float64(c.SampleRate*c.Channels*2)
}

var (
	// ErrNotWAV is returned when the payload does not start with a RIFF/WAVE
	// header.
	ErrNotWAV = errors.New("audio: payload is not a RIFF/WAVE file")

	// ErrUnsupportedFormat is returned for WAV files that are not 16-bit PCM
	// with one or two channels.
	ErrUnsupportedFormat = errors.New("audio: unsupported WAV format")
)

const (
	wavHeaderSize = 44
	fmtPCM        = 1
)

// DecodeWAV parses a RIFF/WAVE payload and returns the contained PCM data and
// format. Only uncompressed 16-bit PCM with 1 or 2 channels is accepted.
// Unknown chunks (LIST, fact, …) are skipped.
func DecodeWAV(b []byte) (Clip, error) {
	if len(b) < wavHeaderSize ||
		string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return Clip{}, ErrNotWAV
	}

	var (
		clip    Clip
		sawFmt  bool
		sawData bool
	)

	// Walk the chunk list after the 12-byte RIFF header.
	for off := 12; off+8 <= len(b); {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(b) {
			// Tolerate a data chunk whose declared size overruns the payload
			// (common with streamed WAV writers that back-patch the header).
			if id == "data" && body < len(b) {
				size = len(b) - body
			} else {
				return Clip{}, fmt.Errorf("audio: truncated %q chunk", id)
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Clip{}, fmt.Errorf("audio: fmt chunk too short (%d bytes)", size)
			}
			format := binary.LittleEndian.Uint16(b[body : body+2])
			channels := int(binary.LittleEndian.Uint16(b[body+2 : body+4]))
			rate := int(binary.LittleEndian.Uint32(b[body+4 : body+8]))
			bits := binary.LittleEndian.Uint16(b[body+14 : body+16])
			if format != fmtPCM || bits != 16 || channels < 1 || channels > 2 {
				return Clip{}, fmt.Errorf("%w: format=%d bits=%d channels=%d",
					ErrUnsupportedFormat, format, bits, channels)
			}
			clip.SampleRate = rate
			clip.Channels = channels
			sawFmt = true

		case "data":
			clip.Data = b[body : body+size]
			sawData = true
		}

		// Chunks are word-aligned.
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !sawFmt || !sawData {
		return Clip{}, fmt.Errorf("%w: missing fmt or data chunk", ErrNotWAV)
	}
	return clip, nil
}

// EncodeWAV wraps interleaved 16-bit little-endian PCM in a minimal RIFF/WAVE
// container.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	blockAlign := channels * 2
	byteRate := sampleRate * blockAlign

	out := make([]byte, wavHeaderSize+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], fmtPCM)
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], 16)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[wavHeaderSize:], pcm)
	return out
}
