package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njmarch/goac/returns"
)

func TestLoadTrainConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
rewardDecay: 0.9
lam: 0.95
policyLayers: [32]
criticLayers: [32, 32]
activation: relu
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	config, err := loadTrainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.9, config.RewardDecay)
	assert.Equal(t, 0.95, config.Lam)
	assert.Equal(t, []int{32}, config.PolicyLayers)
	assert.Equal(t, []int{32, 32}, config.CriticLayers)
	assert.Equal(t, "relu", config.Activation)

	// Omitted fields keep their defaults
	defaults := defaultTrainConfig()
	assert.Equal(t, defaults.K, config.K)
	assert.Equal(t, defaults.CriticTrainIters, config.CriticTrainIters)
	assert.Equal(t, defaults.StepLimit, config.StepLimit)
}

func TestLoadTrainConfigMissingFile(t *testing.T) {
	_, err := loadTrainConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestAlgorithmConfig(t *testing.T) {
	config, err := defaultTrainConfig().algorithmConfig(3)
	require.NoError(t, err)

	assert.Equal(t, 3, config.NumActions)
	assert.Equal(t, returns.FullHorizon, config.K)
	require.NoError(t, config.Validate())

	// Bias flags and activations match the layer counts
	assert.Len(t, config.PolicyBiases, len(config.PolicyLayers))
	assert.Len(t, config.PolicyActivations, len(config.PolicyLayers))
	assert.Len(t, config.CriticBiases, len(config.CriticLayers))
	assert.Len(t, config.CriticActivations, len(config.CriticLayers))
}

func TestAlgorithmConfigUnknownActivation(t *testing.T) {
	config := defaultTrainConfig()
	config.Activation = "sigmoid"

	_, err := config.algorithmConfig(3)
	assert.Error(t, err)
}
