package alert

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

// DefaultSampleRate is used by tone endpoints.
const DefaultSampleRate = 22050

const (
	amplitude = 0.6 * math.MaxInt16
	// fade in and out to avoid clicks at tone edges
	fadeDuration = 5 * time.Millisecond
)

func samplesFor(d time.Duration, rate int) int {
	return int(d.Seconds() * float64(rate))
}

// Synthesize renders a pattern as mono 16-bit PCM.
func Synthesize(p Pattern, sampleRate int) []int16 {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	out := make([]int16, 0, samplesFor(p.Duration(), sampleRate))
	fade := samplesFor(fadeDuration, sampleRate)
	for _, t := range p.Tones {
		n := samplesFor(t.Duration, sampleRate)
		for i := 0; i < n; i++ {
			env := 1.0
			if fade > 0 {
				if i < fade {
					env = float64(i) / float64(fade)
				} else if n-i <= fade {
					env = float64(n-i-1) / float64(fade)
				}
			}
			v := math.Sin(2 * math.Pi * t.FrequencyHz * float64(i) / float64(sampleRate))
			out = append(out, int16(amplitude*env*v))
		}
		out = append(out, make([]int16, samplesFor(t.Gap, sampleRate))...)
	}
	return out
}

// WriteWAV writes samples as a mono 16-bit PCM RIFF file.
func WriteWAV(w io.Writer, samples []int16, sampleRate int) error {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	dataSize := uint32(len(samples) * 2)
	header := struct {
		ChunkID       [4]byte
		ChunkSize     uint32
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32
	}{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * bitsPerSample / 8),
		BlockAlign:    channels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write wav header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	return nil
}
