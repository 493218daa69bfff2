package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// WAV (RIFF) container decoding for the playback path. Only the formats
// the remote synthesizers actually emit are supported: 16-bit PCM and
// 32-bit IEEE float, mono or stereo.

var errShortWAV = errors.New("audio: truncated WAV data")

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// DecodeWAV parses a RIFF/WAVE byte stream and returns its sample rate
// together with the samples as mono int16. Stereo input is downmixed by
// averaging; float samples are clipped to int16 range.
func DecodeWAV(data []byte) (sampleRate int, samples []int16, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, nil, errors.New("audio: not a RIFF/WAVE stream")
	}

	var (
		format   uint16
		channels uint16
		rate     uint32
		bits     uint16
		raw      []byte
		haveFmt  bool
	)

	// Walk the chunk list. Chunks are word-aligned.
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return 0, nil, errShortWAV
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return 0, nil, errShortWAV
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			rate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bits = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			raw = data[body : body+size]
		}
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt || raw == nil {
		return 0, nil, errors.New("audio: WAV stream missing fmt or data chunk")
	}
	if channels != 1 && channels != 2 {
		return 0, nil, fmt.Errorf("audio: unsupported WAV channel count %d", channels)
	}

	switch {
	case format == wavFormatPCM && bits == 16:
		samples = BytesToInt16(raw)
	case format == wavFormatFloat && bits == 32:
		floats := make([]float32, len(raw)/4)
		for i := range floats {
			floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
		}
		samples = Float32ToInt16(floats)
	default:
		return 0, nil, fmt.Errorf("audio: unsupported WAV encoding (format %d, %d bit)", format, bits)
	}

	if channels == 2 {
		samples = StereoToMono(samples)
	}
	return int(rate), samples, nil
}
