package audio

import (
	"encoding/binary"
	"fmt"
	"os"
)

// readWAV decodes a 16-bit PCM WAV file into int16 samples, tolerating the
// minimal 44-byte canonical PCM16 header as well as headers carrying extra
// chunks before "data".
func readWAV(path string) ([]int16, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, &PlaybackErr{Op: "read wave file", Err: err}
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, &PlaybackErr{Op: "decode wave file", Err: fmt.Errorf("not a RIFF/WAVE file")}
	}

	var channels int
	var bitsPerSample uint16
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8

		switch id {
		case "fmt ":
			if body+16 > len(data) {
				return nil, 0, &PlaybackErr{Op: "decode wave file", Err: fmt.Errorf("truncated fmt chunk")}
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
		case "data":
			end := body + int(size)
			if end > len(data) {
				end = len(data)
			}
			if bitsPerSample != 16 {
				return nil, 0, &PlaybackErr{Op: "decode wave file", Err: fmt.Errorf("unsupported bit depth %d", bitsPerSample)}
			}
			if channels <= 0 {
				channels = 1
			}
			return bytesToInt16(data[body:end]), channels, nil
		}

		offset = body + int(size)
		if size%2 == 1 {
			offset++ // chunks are word-aligned
		}
	}

	return nil, 0, &PlaybackErr{Op: "decode wave file", Err: fmt.Errorf("no data chunk found")}
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
	}
	return out
}
