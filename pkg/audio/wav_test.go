package audio_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/openclaw/voicelink/pkg/audio"
)

// sine16 builds n little-endian int16 samples of a ramp waveform, which is
// enough structure to catch byte-order mistakes in the codec.
func ramp16(n int) []byte {
	out := make([]byte, n*2)
	for i := range n {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(i%2000-1000)))
	}
	return out
}

func TestEncodeDecodeWAV_RoundTrip(t *testing.T) {
	t.Parallel()

	pcm := ramp16(1600)
	wav := audio.EncodeWAV(pcm, 16000, 1)

	clip, err := audio.DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if clip.SampleRate != 16000 {
		t.Errorf("SampleRate = %d; want 16000", clip.SampleRate)
	}
	if clip.Channels != 1 {
		t.Errorf("Channels = %d; want 1", clip.Channels)
	}
	if string(clip.Data) != string(pcm) {
		t.Error("PCM data does not round-trip")
	}
}

func TestDecodeWAV_RejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := audio.DecodeWAV([]byte("definitely not audio data, sorry!!!!!!!!!!!!!"))
	if !errors.Is(err, audio.ErrNotWAV) {
		t.Errorf("err = %v; want ErrNotWAV", err)
	}
}

func TestDecodeWAV_RejectsUnsupportedFormat(t *testing.T) {
	t.Parallel()

	// 8-bit PCM header: patch the bits-per-sample field.
	wav := audio.EncodeWAV(ramp16(100), 8000, 1)
	binary.LittleEndian.PutUint16(wav[34:36], 8)

	_, err := audio.DecodeWAV(wav)
	if !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Errorf("err = %v; want ErrUnsupportedFormat", err)
	}
}

func TestDecodeWAV_SkipsUnknownChunks(t *testing.T) {
	t.Parallel()

	pcm := ramp16(200)
	wav := audio.EncodeWAV(pcm, 22050, 1)

	// Splice a LIST chunk between fmt and data.
	list := make([]byte, 8+4)
	copy(list[0:4], "LIST")
	binary.LittleEndian.PutUint32(list[4:8], 4)
	copy(list[8:12], "INFO")

	spliced := append(append(append([]byte{}, wav[:36]...), list...), wav[36:]...)
	binary.LittleEndian.PutUint32(spliced[4:8], uint32(len(spliced)-8))

	clip, err := audio.DecodeWAV(spliced)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if string(clip.Data) != string(pcm) {
		t.Error("PCM data lost when skipping LIST chunk")
	}
}

func TestDecodeWAV_ToleratesOverlongDataSize(t *testing.T) {
	t.Parallel()

	pcm := ramp16(100)
	wav := audio.EncodeWAV(pcm, 16000, 1)
	// Streamed writers often leave a bogus size in the data chunk header.
	binary.LittleEndian.PutUint32(wav[40:44], uint32(len(pcm)*10))

	clip, err := audio.DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(clip.Data) != len(pcm) {
		t.Errorf("data length = %d; want %d", len(clip.Data), len(pcm))
	}
}

func TestClipDuration(t *testing.T) {
	t.Parallel()

	clip := audio.Clip{Data: make([]byte, 32000), SampleRate: 16000, Channels: 1}
	if got := clip.Duration(); got != 1.0 {
		t.Errorf("Duration = %v; want 1.0", got)
	}
}
