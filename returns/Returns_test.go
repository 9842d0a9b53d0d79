package returns

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-12

func TestLambdaMonteCarlo(t *testing.T) {
	rewards := []float64{1.0, 0.0, 2.0}
	values := []float64{0.0, 0.0, 0.0}

	targets, err := Lambda(rewards, values, 0.9, 1.0, FullHorizon)
	require.NoError(t, err)
	require.Len(t, targets, 3)

	assert.InDelta(t, 2.62, targets[0], tolerance)
	assert.InDelta(t, 1.8, targets[1], tolerance)
	assert.InDelta(t, 2.0, targets[2], tolerance)
}

// TestLambdaMonteCarloIgnoresValues verifies that with λ = 1 and a
// full horizon, the targets are pure Monte-Carlo returns that do not
// depend on the supplied value estimates.
func TestLambdaMonteCarloIgnoresValues(t *testing.T) {
	rewards := []float64{1.0, 0.0, 2.0}

	first, err := Lambda(rewards, []float64{0, 0, 0}, 0.9, 1.0, FullHorizon)
	require.NoError(t, err)
	second, err := Lambda(rewards, []float64{-55.5, 1e6, 3.25}, 0.9, 1.0,
		FullHorizon)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLambdaSingleStep(t *testing.T) {
	targets, err := Lambda([]float64{3.5}, []float64{-1.0}, 0.9, 1.0,
		FullHorizon)
	require.NoError(t, err)

	assert.Equal(t, []float64{3.5}, targets)
}

func TestLambdaEmptyTrajectory(t *testing.T) {
	targets, err := Lambda([]float64{}, []float64{}, 0.9, 1.0, FullHorizon)
	require.NoError(t, err)

	assert.Empty(t, targets)
}

func TestLambdaOneStepBootstrap(t *testing.T) {
	rewards := []float64{1.0, 2.0, 3.0}
	values := []float64{10.0, 20.0, 30.0}

	targets, err := Lambda(rewards, values, 0.5, 1.0, 1)
	require.NoError(t, err)

	// G[t] = r[t] + ℽ v[t+1]; no bootstrap past the last state
	assert.InDelta(t, 1.0+0.5*20.0, targets[0], tolerance)
	assert.InDelta(t, 2.0+0.5*30.0, targets[1], tolerance)
	assert.InDelta(t, 3.0, targets[2], tolerance)
}

func TestLambdaTwoStepBootstrap(t *testing.T) {
	rewards := []float64{1.0, 2.0, 3.0}
	values := []float64{10.0, 20.0, 30.0}

	targets, err := Lambda(rewards, values, 0.5, 1.0, 2)
	require.NoError(t, err)

	assert.InDelta(t, 1.0+0.5*2.0+0.25*30.0, targets[0], tolerance)
	assert.InDelta(t, 2.0+0.5*3.0, targets[1], tolerance)
	assert.InDelta(t, 3.0, targets[2], tolerance)
}

// TestLambdaHorizonBeyondTrajectory verifies that a horizon larger
// than the trajectory truncates at the trajectory end, matching the
// Monte-Carlo return.
func TestLambdaHorizonBeyondTrajectory(t *testing.T) {
	rewards := []float64{1.0, 0.0, 2.0}
	values := []float64{4.0, 5.0, 6.0}

	kStep, err := Lambda(rewards, values, 0.9, 1.0, 100)
	require.NoError(t, err)
	monteCarlo, err := Lambda(rewards, values, 0.9, 1.0, FullHorizon)
	require.NoError(t, err)

	for i := range kStep {
		assert.InDelta(t, monteCarlo[i], kStep[i], tolerance)
	}
}

// TestLambdaBlend verifies the backward lambda-return recurrence
// against hand-computed targets.
func TestLambdaBlend(t *testing.T) {
	rewards := []float64{1.0, 2.0}
	values := []float64{5.0, 7.0}

	targets, err := Lambda(rewards, values, 0.9, 0.5, FullHorizon)
	require.NoError(t, err)

	// G[1] = r[1]; G[0] = r[0] + ℽ ((1-λ) v[1] + λ G[1])
	assert.InDelta(t, 2.0, targets[1], tolerance)
	assert.InDelta(t, 1.0+0.9*(0.5*7.0+0.5*2.0), targets[0], tolerance)
}

// TestLambdaBlendMatchesWeightedNStep verifies that the recurrence
// equals the explicit exponentially weighted combination of n-step
// returns with the boundary mass on the final unbootstrapped return.
func TestLambdaBlendMatchesWeightedNStep(t *testing.T) {
	rewards := []float64{1.0, -0.5, 2.0, 0.25}
	values := []float64{0.3, -1.2, 0.9, 2.0}
	gamma, lam := 0.95, 0.7

	targets, err := Lambda(rewards, values, gamma, lam, FullHorizon)
	require.NoError(t, err)

	T := len(rewards)
	nStep := func(t, n int) float64 {
		ret := 0.0
		discount := 1.0
		for i := 0; i < n; i++ {
			ret += discount * rewards[t+i]
			discount *= gamma
		}
		if t+n < T {
			ret += discount * values[t+n]
		}
		return ret
	}

	for ti := 0; ti < T; ti++ {
		horizon := T - ti
		want := 0.0
		weight := 1 - lam
		for n := 1; n < horizon; n++ {
			want += weight * nStep(ti, n)
			weight *= lam
		}
		// Remaining mass λ^(horizon-1) on the final return
		want += math.Pow(lam, float64(horizon-1)) * nStep(ti, horizon)

		assert.InDelta(t, want, targets[ti], 1e-10, "timestep %v", ti)
	}
}

func TestLambdaShapeMismatch(t *testing.T) {
	_, err := Lambda([]float64{1, 2, 3}, []float64{1, 2}, 0.9, 1.0,
		FullHorizon)
	require.Error(t, err)
	assert.True(t, IsShapeMismatch(err))
}

func TestLambdaInvalidParameters(t *testing.T) {
	rewards := []float64{1.0}
	values := []float64{0.0}

	tests := []struct {
		name  string
		gamma float64
		lam   float64
		k     int
	}{
		{"decay above one", 1.5, 1.0, FullHorizon},
		{"negative decay", -0.1, 1.0, FullHorizon},
		{"lambda above one", 0.9, 1.1, FullHorizon},
		{"negative lambda", 0.9, -0.5, FullHorizon},
		{"zero horizon", 0.9, 1.0, 0},
		{"negative horizon", 0.9, 1.0, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lambda(rewards, values, tt.gamma, tt.lam, tt.k)
			assert.Error(t, err)
		})
	}
}

// TestLambdaNonFiniteRewards verifies that non-finite rewards
// propagate into the returned targets rather than being clamped.
func TestLambdaNonFiniteRewards(t *testing.T) {
	rewards := []float64{1.0, math.NaN(), 2.0}
	values := []float64{0.0, 0.0, 0.0}

	targets, err := Lambda(rewards, values, 0.9, 1.0, FullHorizon)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(targets[0]))
	assert.True(t, math.IsNaN(targets[1]))
	assert.False(t, math.IsNaN(targets[2]))
}

func TestAdvantages(t *testing.T) {
	targets := []float64{2.62, 1.8, 2.0}
	values := []float64{1.0, -0.5, 2.25}

	adv, err := Advantages(targets, values)
	require.NoError(t, err)
	require.Len(t, adv, 3)

	for i := range adv {
		assert.Equal(t, targets[i]-values[i], adv[i])
	}
}

func TestAdvantagesShapeMismatch(t *testing.T) {
	_, err := Advantages([]float64{1, 2}, []float64{1, 2, 3})
	require.Error(t, err)
	assert.True(t, IsShapeMismatch(err))
}

func TestStandardize(t *testing.T) {
	adv := Standardize([]float64{1.0, 2.0, 3.0, 4.0})

	mean := 0.0
	for _, a := range adv {
		mean += a
	}
	mean /= float64(len(adv))
	assert.InDelta(t, 0.0, mean, 1e-8)

	variance := 0.0
	for _, a := range adv {
		variance += (a - mean) * (a - mean)
	}
	std := math.Sqrt(variance / float64(len(adv)-1))
	assert.InDelta(t, 1.0, std, 1e-6)
}

func TestStandardizeEmpty(t *testing.T) {
	assert.Empty(t, Standardize([]float64{}))
}
