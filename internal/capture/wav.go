package capture

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	pcmChannels = 1
	pcmBitDepth = 16
)

// encodeWAV wraps mono PCM16 samples in a RIFF/WAVE container.
func encodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	dataSize := len(samples) * 2

	header, err := wavHeader(dataSize, sampleRate, pcmChannels, pcmBitDepth)
	if err != nil {
		return nil, fmt.Errorf("build wav header: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(header)+dataSize))
	buf.Write(header)
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("write wav payload: %w", err)
	}

	return buf.Bytes(), nil
}

// DurationOf reads the byte rate and payload size out of a RIFF/WAVE
// header and returns the audio length in seconds.
func DurationOf(wav []byte) (float64, error) {
	if len(wav) < 44 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return 0, fmt.Errorf("not a wav file")
	}
	byteRate := binary.LittleEndian.Uint32(wav[28:32])
	if byteRate == 0 {
		return 0, fmt.Errorf("wav header has zero byte rate")
	}
	dataSize := binary.LittleEndian.Uint32(wav[40:44])
	if int(dataSize) > len(wav)-44 {
		dataSize = uint32(len(wav) - 44)
	}
	return float64(dataSize) / float64(byteRate), nil
}

func wavHeader(dataSize, sampleRate, channels, bitDepth int) ([]byte, error) {
	byteRate := sampleRate * channels * bitDepth / 8
	blockAlign := channels * bitDepth / 8
	chunkSize := 36 + dataSize

	buf := bytes.NewBuffer(make([]byte, 0, 44))
	if _, err := buf.WriteString("RIFF"); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(chunkSize)); err != nil {
		return nil, err
	}
	if _, err := buf.WriteString("WAVE"); err != nil {
		return nil, err
	}
	if _, err := buf.WriteString("fmt "); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(16)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(1)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(channels)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(sampleRate)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(byteRate)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(blockAlign)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(bitDepth)); err != nil {
		return nil, err
	}
	if _, err := buf.WriteString("data"); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(dataSize)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
