// Package confidence scores how well retrieved context supports an answer.
package confidence

// Scorer turns retrieval similarities (best first) into a confidence in [0, 1].
type Scorer interface {
	Score(similarities []float64) float64
}

// MeanSimilarity averages the retrieval similarities.
type MeanSimilarity struct{}

func (MeanSimilarity) Score(similarities []float64) float64 {
	if len(similarities) == 0 {
		return 0
	}
	var sum float64
	for _, s := range similarities {
		sum += s
	}
	return clamp(sum / float64(len(similarities)))
}

// Constant reports the same confidence for every answer.
type Constant float64

func (c Constant) Score([]float64) float64 {
	return clamp(float64(c))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
