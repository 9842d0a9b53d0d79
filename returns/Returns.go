// Package returns implements lambda-return targets and advantage
// estimates for policy-gradient learning
package returns

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FullHorizon denotes that returns should accumulate actual rewards
// until the end of the trajectory, with no bootstrapping.
const FullHorizon int = -1

// Lambda computes a lambda-return target for every timestep of a
// reward sequence, bootstrapping with the state-value estimates in
// values. Both sequences must have the same length T, and the output
// always has length T.
//
// The horizon k and the mixing factor lam are reconciled as follows.
// When lam == 1, the k-step truncated bootstrapped return is computed
// at each timestep; k == FullHorizon accumulates actual rewards to the
// end of the trajectory (Monte-Carlo return, independent of values).
// When lam < 1, lam dominates and k is ignored: the output is the
// exponentially weighted combination of n-step returns for
// n = 1..(T-t), with the weight mass beyond the trajectory boundary
// assigned to the final, unbootstrapped return. Both cases are
// computed by a single backward recurrence in O(T) time.
//
// Non-finite rewards propagate into the returned targets unchanged.
func Lambda(rewards, values []float64, gamma, lam float64,
	k int) ([]float64, error) {
	if len(values) != len(rewards) {
		return nil, &ShapeError{
			Op:   "lambda",
			Want: len(rewards),
			Have: len(values),
		}
	}
	if gamma < 0 || gamma > 1 {
		return nil, fmt.Errorf("lambda: decay must be in [0, 1] \n\thave(%v)",
			gamma)
	}
	if lam < 0 || lam > 1 {
		return nil, fmt.Errorf("lambda: mixing factor must be in [0, 1] "+
			"\n\thave(%v)", lam)
	}
	if k != FullHorizon && k < 1 {
		return nil, fmt.Errorf("lambda: horizon must be positive or "+
			"FullHorizon \n\thave(%v)", k)
	}

	T := len(rewards)
	if T == 0 {
		return []float64{}, nil
	}

	if lam < 1 {
		return lambdaReturns(rewards, values, gamma, lam), nil
	}
	if k == FullHorizon {
		rews := mat.NewVecDense(T, rewards)
		return DiscountCumSum(rews, gamma), nil
	}
	return nStepReturns(rewards, values, gamma, k), nil
}

// Advantages computes the elementwise difference between return
// targets and state-value estimates, the quantity that scales the
// policy gradient.
func Advantages(targets, values []float64) ([]float64, error) {
	if len(targets) != len(values) {
		return nil, &ShapeError{
			Op:   "advantages",
			Want: len(targets),
			Have: len(values),
		}
	}

	adv := make([]float64, len(targets))
	floats.SubTo(adv, targets, values)
	return adv, nil
}

// Standardize rescales advantages in-place to mean 0 and standard
// deviation 1 and returns the slice.
func Standardize(advantages []float64) []float64 {
	if len(advantages) == 0 {
		return advantages
	}

	mean := stat.Mean(advantages, nil)
	std := stat.StdDev(advantages, nil) + 1e-8
	for i := range advantages {
		advantages[i] = (advantages[i] - mean) / std
	}
	return advantages
}

// lambdaReturns computes the full-horizon lambda return at every
// timestep by the backward recurrence
//
//	G[T-1] = r[T-1]
//	G[t]   = r[t] + ℽ ((1-λ) v[t+1] + λ G[t+1])
//
// which is the exponentially weighted combination of the n-step
// returns for n = 1..(T-t), with weights (1-λ)λ^(n-1) and the
// remaining mass λ^(T-t-1) on the final unbootstrapped return.
func lambdaReturns(rewards, values []float64, gamma, lam float64) []float64 {
	T := len(rewards)
	targets := make([]float64, T)
	targets[T-1] = rewards[T-1]
	for t := T - 2; t >= 0; t-- {
		targets[t] = rewards[t] +
			gamma*((1-lam)*values[t+1]+lam*targets[t+1])
	}
	return targets
}

// nStepReturns computes the k-step truncated bootstrapped return at
// every timestep:
//
//	G[t] = Σ_{i=0..n-1} ℽ^i r[t+i] + ℽ^n v[t+n],	n = min(k, T-t)
//
// where the bootstrap term is omitted whenever t+n reaches the end of
// the trajectory, since no value estimate exists beyond the last
// observed state.
func nStepReturns(rewards, values []float64, gamma float64, k int) []float64 {
	T := len(rewards)
	targets := make([]float64, T)
	for t := 0; t < T; t++ {
		n := k
		if T-t < n {
			n = T - t
		}

		discount := 1.0
		for i := 0; i < n; i++ {
			targets[t] += discount * rewards[t+i]
			discount *= gamma
		}
		if t+n < T {
			targets[t] += discount * values[t+n]
		}
	}
	return targets
}

// DiscountCumSum computes the discounted cumulative sum of all
// elements of a vector. Given a vector v = [x0 x1 x2 ... xN] and
// discount ℽ, this function computes and returns:
//
//	[
//	 x0 + ℽ x1 + ℽ^2 x2 + ... + ℽ^N xN
//	 x1 + ℽ x2 + ... + ℽ^(N-1) xN
//	 ...
//	 xN
//	]
func DiscountCumSum(x *mat.VecDense, discount float64) []float64 {
	cumSums := make([]float64, x.Len())
	last := 0.0
	for i := x.Len() - 1; i >= 0; i-- {
		cumSums[i] = x.AtVec(i) + discount*last
		last = cumSums[i]
	}
	return cumSums
}
