package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

// Earcon frequencies for the recognition state cues. The listening-start
// cue is higher pitched than the listening-stop cue so the two are
// distinguishable without sight.
const (
	StartCueFrequency = 880.0
	StopCueFrequency  = 440.0
	cueDuration       = 120 * time.Millisecond
)

// GenerateTone renders a sine tone as 16-bit PCM mono WAV bytes.
func GenerateTone(frequency float64, duration time.Duration, sampleRate int) []byte {
	numSamples := int(float64(sampleRate) * duration.Seconds())
	samples := make([]int16, numSamples)

	fade := numSamples / 10 // Short fade in/out to avoid clicks
	for i := 0; i < numSamples; i++ {
		v := math.Sin(2 * math.Pi * frequency * float64(i) / float64(sampleRate))

		gain := 1.0
		if i < fade {
			gain = float64(i) / float64(fade)
		} else if i >= numSamples-fade {
			gain = float64(numSamples-i) / float64(fade)
		}

		samples[i] = int16(v * gain * 0.5 * math.MaxInt16)
	}

	return encodeWAV(samples, sampleRate)
}

// StartCue returns the listening-start earcon as WAV bytes
func StartCue(sampleRate int) []byte {
	return GenerateTone(StartCueFrequency, cueDuration, sampleRate)
}

// StopCue returns the listening-stop earcon as WAV bytes
func StopCue(sampleRate int) []byte {
	return GenerateTone(StopCueFrequency, cueDuration, sampleRate)
}

// encodeWAV wraps 16-bit mono PCM samples in a RIFF/WAVE container
func encodeWAV(samples []int16, sampleRate int) []byte {
	dataSize := len(samples) * 2
	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // Mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // Byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))            // Block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))           // Bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, s)
	}

	return buf.Bytes()
}
