package audio

import (
	"fmt"

	opus "gopkg.in/hraban/opus.v2"
)

const (
	// DefaultSampleRate is the rate browsers send Opus at.
	DefaultSampleRate = 48000

	// maxFrameSamples covers the largest Opus frame (120ms at 48kHz).
	maxFrameSamples = 5760
)

// OpusDecoder decodes browser Opus packets into PCM16 chunks.
// Not safe for concurrent use; one decoder per client stream.
type OpusDecoder struct {
	dec        *opus.Decoder
	sampleRate int
	channels   int
	frame      []int16
}

// NewOpusDecoder creates a decoder for the given stream parameters.
func NewOpusDecoder(sampleRate, channels int) (*OpusDecoder, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}
	return &OpusDecoder{
		dec:        dec,
		sampleRate: sampleRate,
		channels:   channels,
		frame:      make([]int16, maxFrameSamples*channels),
	}, nil
}

// Decode decodes one Opus packet. Empty packets yield an empty chunk.
func (d *OpusDecoder) Decode(packet []byte) (Chunk, error) {
	if len(packet) == 0 {
		return Chunk{SampleRate: d.sampleRate, Channels: d.channels}, nil
	}

	n, err := d.dec.Decode(packet, d.frame)
	if err != nil {
		return Chunk{}, fmt.Errorf("decode opus packet: %w", err)
	}

	samples := make([]int16, n*d.channels)
	copy(samples, d.frame[:n*d.channels])
	return Chunk{Samples: samples, SampleRate: d.sampleRate, Channels: d.channels}, nil
}
