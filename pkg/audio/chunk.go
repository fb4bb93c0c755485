// Package audio handles the microphone stream coming from the browser:
// PCM16 framing, Opus decoding and volume metering.
package audio

// Chunk is one block of microphone audio.
type Chunk struct {
	// Samples contains PCM16 audio samples (little-endian on the wire).
	Samples []int16

	// SampleRate is the sample rate of this chunk.
	SampleRate int

	// Channels is the number of channels in this chunk.
	Channels int
}

// ChunkFromBytes builds a chunk from raw PCM16 little-endian bytes.
func ChunkFromBytes(data []byte, sampleRate, channels int) Chunk {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return Chunk{Samples: samples, SampleRate: sampleRate, Channels: channels}
}

// Bytes returns the raw PCM16 little-endian bytes of the chunk.
func (c Chunk) Bytes() []byte {
	buf := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

// Duration returns the chunk length in seconds.
func (c Chunk) Duration() float64 {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate*c.Channels)
}

// Mono collapses a stereo chunk to mono by averaging channel pairs.
// Mono chunks are returned unchanged.
func (c Chunk) Mono() Chunk {
	if c.Channels != 2 {
		return c
	}
	mono := make([]int16, len(c.Samples)/2)
	for i := range mono {
		left := int32(c.Samples[i*2])
		right := int32(c.Samples[i*2+1])
		mono[i] = int16((left + right) / 2)
	}
	return Chunk{Samples: mono, SampleRate: c.SampleRate, Channels: 1}
}

// Resample converts the chunk to another sample rate using linear
// interpolation. Good enough for speech level metering.
func (c Chunk) Resample(toRate int) Chunk {
	if c.SampleRate == toRate || len(c.Samples) == 0 || toRate <= 0 {
		return c
	}

	ratio := float64(c.SampleRate) / float64(toRate)
	newLen := int(float64(len(c.Samples)) / ratio)
	if newLen == 0 {
		return Chunk{SampleRate: toRate, Channels: c.Channels}
	}

	out := make([]int16, newLen)
	for i := 0; i < newLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		if srcIdx >= len(c.Samples)-1 {
			out[i] = c.Samples[len(c.Samples)-1]
		} else {
			s1 := float64(c.Samples[srcIdx])
			s2 := float64(c.Samples[srcIdx+1])
			out[i] = int16(s1 + frac*(s2-s1))
		}
	}
	return Chunk{Samples: out, SampleRate: toRate, Channels: c.Channels}
}
