// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max.
// If min exceeds the floating point, then the function returns the min.
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// Max calculates and returns the maximum float64 in a list
func Max(values ...float64) float64 {
	max := values[0]
	for _, val := range values {
		if val > max {
			max = val
		}
	}
	return max
}

// Min calculates and returns the minimum float64 in a list
func Min(values ...float64) float64 {
	min := values[0]
	for _, val := range values {
		if val < min {
			min = val
		}
	}
	return min
}

// Softmax computes the softmax of a slice of logits. The maximum logit
// is subtracted before exponentiation so that finite logits can never
// overflow.
func Softmax(logits []float64) []float64 {
	probs := make([]float64, len(logits))
	if len(logits) == 0 {
		return probs
	}

	max := Max(logits...)
	for i, logit := range logits {
		probs[i] = math.Exp(logit - max)
	}

	sum := floats.Sum(probs)
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
