package capture

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768}

	wav, err := encodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("encodeWAV failed: %v", err)
	}

	if len(wav) != 44+len(samples)*2 {
		t.Fatalf("unexpected length %d", len(wav))
	}
	if string(wav[:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad container magic: %q", wav[:12])
	}

	sampleRate := binary.LittleEndian.Uint32(wav[24:28])
	if sampleRate != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", sampleRate)
	}
	channels := binary.LittleEndian.Uint16(wav[22:24])
	if channels != 1 {
		t.Fatalf("expected mono, got %d channels", channels)
	}
	dataSize := binary.LittleEndian.Uint32(wav[40:44])
	if dataSize != uint32(len(samples)*2) {
		t.Fatalf("expected data size %d, got %d", len(samples)*2, dataSize)
	}

	first := int16(binary.LittleEndian.Uint16(wav[44:46]))
	if first != 0 {
		t.Fatalf("unexpected first sample %d", first)
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	wav, err := encodeWAV(nil, 16000)
	if err != nil {
		t.Fatalf("encodeWAV failed: %v", err)
	}
	if len(wav) != 44 {
		t.Fatalf("expected bare header, got %d bytes", len(wav))
	}
}

func TestMixInt16(t *testing.T) {
	got := mixInt16([]int16{100, -200, 3}, []int16{50, 100})
	want := []int16{150, -100, 3}
	if len(got) != len(want) {
		t.Fatalf("unexpected length %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: want %d, got %d", i, want[i], got[i])
		}
	}
}

func TestMixInt16Saturates(t *testing.T) {
	got := mixInt16([]int16{32000, -32000}, []int16{32000, -32000})
	if got[0] != 32767 {
		t.Fatalf("expected positive clip at 32767, got %d", got[0])
	}
	if got[1] != -32768 {
		t.Fatalf("expected negative clip at -32768, got %d", got[1])
	}
}
