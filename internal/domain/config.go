package domain

// VectorConfig holds the embedding settings the snapshots were built with.
type VectorConfig struct {
	Model            string
	Dimensions       int
	DistanceMetric   string
	QueryInstruction string
}

// DefaultVectorConfig returns the configuration matching the offline index build
// (all-mpnet-base-v2, flat L2 index).
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "all-mpnet-base-v2",
		Dimensions:     768,
		DistanceMetric: "l2",
	}
}
