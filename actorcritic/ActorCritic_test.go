package actorcritic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njmarch/goac/initwfn"
	"github.com/njmarch/goac/solver"
	"github.com/njmarch/goac/trajectory"
)

// testTrajectory returns a small fixed trajectory of one-dimensional
// states.
func testTrajectory(t *testing.T, rewards []float64) *trajectory.Trajectory {
	t.Helper()

	traj, err := trajectory.New(1)
	require.NoError(t, err)
	for i, reward := range rewards {
		err := traj.Append([]float64{float64(i)}, i%2, reward)
		require.NoError(t, err)
	}
	return traj
}

func TestNewInvalidConfig(t *testing.T) {
	c := testConfig(t)
	c.NumActions = 0

	_, err := New(1, c, 1)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestNewInvalidFeatures(t *testing.T) {
	_, err := New(0, testConfig(t), 1)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

// TestSelectActionDeterministic verifies that two agents constructed
// with the same seed and all-zero weights sample identical action
// sequences.
func TestSelectActionDeterministic(t *testing.T) {
	c := testConfig(t)
	c.InitWFn = initwfn.NewZeroes()

	first, err := New(2, c, 17)
	require.NoError(t, err)
	second, err := New(2, c, 17)
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		state := []float64{float64(i), -float64(i)}

		a1, err := first.SelectAction(state)
		require.NoError(t, err)
		a2, err := second.SelectAction(state)
		require.NoError(t, err)

		assert.Equal(t, a1, a2)
		assert.GreaterOrEqual(t, a1, 0)
		assert.Less(t, a1, c.NumActions)
	}
}

func TestSelectActionShapeMismatch(t *testing.T) {
	agent, err := New(2, testConfig(t), 1)
	require.NoError(t, err)

	_, err = agent.SelectAction([]float64{1.0})
	require.Error(t, err)
	assert.True(t, IsShapeMismatch(err))
}

// TestProbabilitiesUniform verifies that all-zero weights produce zero
// logits and hence a uniform action distribution.
func TestProbabilitiesUniform(t *testing.T) {
	c := testConfig(t)
	c.NumActions = 4
	c.InitWFn = initwfn.NewZeroes()

	agent, err := New(3, c, 1)
	require.NoError(t, err)

	probs, err := agent.Probabilities([]float64{0.5, -1.0, 2.0})
	require.NoError(t, err)
	require.Len(t, probs, 4)

	for _, p := range probs {
		assert.InDelta(t, 0.25, p, 1e-12)
	}
}

func TestTrainEmptyTrajectory(t *testing.T) {
	agent, err := New(1, testConfig(t), 1)
	require.NoError(t, err)

	traj, err := trajectory.New(1)
	require.NoError(t, err)

	stats, err := agent.Train(traj)
	require.NoError(t, err)
	assert.Empty(t, stats.Returns)
	assert.Empty(t, stats.ActorLoss)
	assert.Empty(t, stats.CriticLoss)
}

func TestTrainFeatureMismatch(t *testing.T) {
	agent, err := New(2, testConfig(t), 1)
	require.NoError(t, err)

	traj := testTrajectory(t, []float64{1.0})

	_, err = agent.Train(traj)
	require.Error(t, err)
	assert.True(t, IsShapeMismatch(err))
}

func TestTrainActionOutOfRange(t *testing.T) {
	c := testConfig(t)
	agent, err := New(1, c, 1)
	require.NoError(t, err)

	traj, err := trajectory.New(1)
	require.NoError(t, err)
	require.NoError(t, traj.Append([]float64{0.0}, c.NumActions, 1.0))

	_, err = agent.Train(traj)
	assert.Error(t, err)
}

// TestTrainReturns verifies the Monte-Carlo return targets of a fixed
// reward sequence. With all-zero weights the value estimates are zero,
// so the advantages must equal the returns.
func TestTrainReturns(t *testing.T) {
	c := testConfig(t)
	c.InitWFn = initwfn.NewZeroes()
	c.ActorTrainIters = 2
	c.CriticTrainIters = 3

	agent, err := New(1, c, 1)
	require.NoError(t, err)

	traj := testTrajectory(t, []float64{1.0, 0.0, 2.0})

	stats, err := agent.Train(traj)
	require.NoError(t, err)

	require.Len(t, stats.Returns, 3)
	assert.InDelta(t, 2.62, stats.Returns[0], 1e-10)
	assert.InDelta(t, 1.8, stats.Returns[1], 1e-10)
	assert.InDelta(t, 2.0, stats.Returns[2], 1e-10)

	require.Len(t, stats.Advantages, 3)
	for i := range stats.Advantages {
		assert.InDelta(t, stats.Returns[i], stats.Advantages[i], 1e-10)
	}

	assert.Len(t, stats.ActorLoss, 2)
	assert.Len(t, stats.CriticLoss, 3)
}

// TestTrainCriticLossNonIncreasing verifies that repeated gradient
// steps with a small step size do not increase the squared regression
// loss of a linear value function.
func TestTrainCriticLossNonIncreasing(t *testing.T) {
	c := testConfig(t)
	c.ActorTrainIters = 0
	c.CriticTrainIters = 15
	c.PolicyLayers = nil
	c.PolicyBiases = nil
	c.PolicyActivations = nil
	c.CriticLayers = nil
	c.CriticBiases = nil
	c.CriticActivations = nil

	criticSolver, err := solver.NewVanilla(0.005, 1)
	require.NoError(t, err)
	c.CriticSolver = criticSolver

	agent, err := New(1, c, 3)
	require.NoError(t, err)

	traj := testTrajectory(t, []float64{1.0, -0.5, 2.0, 0.25})

	stats, err := agent.Train(traj)
	require.NoError(t, err)
	require.Len(t, stats.CriticLoss, 15)

	for i := 1; i < len(stats.CriticLoss); i++ {
		assert.LessOrEqual(t, stats.CriticLoss[i],
			stats.CriticLoss[i-1]+1e-10, "iteration %v", i)
	}
}

// TestTrainUpdatesSamplingPolicy verifies that weights stepped during
// training are published back to the network that SelectAction samples
// from.
func TestTrainUpdatesSamplingPolicy(t *testing.T) {
	c := testConfig(t)
	c.ActorTrainIters = 10
	c.CriticTrainIters = 10
	c.StandardizeAdvantages = true

	agent, err := New(1, c, 5)
	require.NoError(t, err)

	state := []float64{0.0}
	before, err := agent.Probabilities(state)
	require.NoError(t, err)

	traj := testTrajectory(t, []float64{1.0, 0.0, 2.0})
	_, err = agent.Train(traj)
	require.NoError(t, err)

	after, err := agent.Probabilities(state)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestTrainSharedLayers(t *testing.T) {
	c := testSharedConfig(t)
	c.ActorTrainIters = 3
	c.CriticTrainIters = 3

	agent, err := New(2, c, 1)
	require.NoError(t, err)

	traj, err := trajectory.New(2)
	require.NoError(t, err)
	for i, reward := range []float64{1.0, 1.0, 0.0} {
		err := traj.Append([]float64{float64(i), 1.0}, i%2, reward)
		require.NoError(t, err)
	}

	stats, err := agent.Train(traj)
	require.NoError(t, err)
	assert.Len(t, stats.ActorLoss, 3)
	assert.Len(t, stats.CriticLoss, 3)

	_, err = agent.SelectAction([]float64{0.5, -0.5})
	assert.NoError(t, err)
}

// TestTrainVariableLengths verifies that consecutive trajectories of
// different lengths train without error.
func TestTrainVariableLengths(t *testing.T) {
	agent, err := New(1, testConfig(t), 1)
	require.NoError(t, err)

	for _, rewards := range [][]float64{
		{1.0, 0.0},
		{1.0, 0.0, 2.0, -1.0},
		{0.5},
		{1.0, 0.0, 2.0, -1.0},
	} {
		stats, err := agent.Train(testTrajectory(t, rewards))
		require.NoError(t, err)
		assert.Len(t, stats.Returns, len(rewards))
	}
}

func TestValidateDistribution(t *testing.T) {
	assert.NoError(t, validateDistribution([]float64{0.25, 0.25, 0.5}))

	err := validateDistribution([]float64{0.5, -0.1, 0.6})
	require.Error(t, err)
	assert.True(t, IsNumericError(err))

	err = validateDistribution([]float64{0.5, 0.4})
	require.Error(t, err)
	assert.True(t, IsNumericError(err))
}
