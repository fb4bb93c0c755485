package audio

import "math"

// meterFloorDB is the dBFS level mapped to meter value 0. Quieter than
// this reads as silence.
const meterFloorDB = -60.0

// RMS returns the root mean square amplitude of the chunk, normalized
// to 0.0-1.0.
func RMS(c Chunk) float64 {
	if len(c.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range c.Samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum/float64(len(c.Samples))) / 32767
}

// Level converts a chunk to a 0-100 meter reading on a decibel scale.
// 0 is silence at or below the meter floor, 100 is full scale.
func Level(c Chunk) float64 {
	rms := RMS(c)
	if rms <= 0 {
		return 0
	}
	db := 20 * math.Log10(rms)
	if db < meterFloorDB {
		return 0
	}
	level := (db - meterFloorDB) / -meterFloorDB * 100
	if level > 100 {
		level = 100
	}
	return level
}
