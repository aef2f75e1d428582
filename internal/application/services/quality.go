package services

import "math"

const (
	MinCompressionLevel = 10
	MaxCompressionLevel = 90

	qualityCeil  = 92
	qualitySpan  = 55
	qualityCurve = 1.35
)

// QualityForLevel maps a compression level to encoder quality: 92 at level 10 down to 37 at level 90.
// The exponent keeps quality high through the mid range and drops it fastest near the aggressive end.
func QualityForLevel(level int) int {
	t := float64(level-MinCompressionLevel) / float64(MaxCompressionLevel-MinCompressionLevel)
	t = math.Max(0, math.Min(1, t))

	return int(math.Round(qualityCeil - qualitySpan*math.Pow(t, qualityCurve)))
}

// PercentSaved may be negative when the output grew.
func PercentSaved(originalSize, compressedSize int64) int {
	if originalSize <= 0 {
		return 0
	}
	return int(math.Round(float64(originalSize-compressedSize) / float64(originalSize) * 100))
}
