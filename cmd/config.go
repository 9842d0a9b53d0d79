package cmd

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/njmarch/goac/actorcritic"
	"github.com/njmarch/goac/initwfn"
	"github.com/njmarch/goac/network"
	"github.com/njmarch/goac/returns"
	"github.com/njmarch/goac/solver"
)

// trainConfig holds the hyperparameters of a training run as read from
// a YAML configuration file.
type trainConfig struct {
	RewardDecay      float64 `yaml:"rewardDecay"`
	ActorTrainIters  int     `yaml:"actorTrainIters"`
	CriticTrainIters int     `yaml:"criticTrainIters"`
	K                int     `yaml:"k"`
	Lam              float64 `yaml:"lam"`

	PolicyLayers []int `yaml:"policyLayers"`
	CriticLayers []int `yaml:"criticLayers"`
	RootLayers   []int `yaml:"rootLayers"`

	Activation string  `yaml:"activation"`
	InitGain   float64 `yaml:"initGain"`

	PolicyStepSize float64 `yaml:"policyStepSize"`
	CriticStepSize float64 `yaml:"criticStepSize"`

	StandardizeAdvantages bool `yaml:"standardizeAdvantages"`

	StepLimit int `yaml:"stepLimit"`
}

// defaultTrainConfig returns the hyperparameters used when no
// configuration file is given.
func defaultTrainConfig() trainConfig {
	return trainConfig{
		RewardDecay:      0.99,
		ActorTrainIters:  1,
		CriticTrainIters: 10,
		K:                returns.FullHorizon,
		Lam:              1.0,
		PolicyLayers:     []int{64, 64},
		CriticLayers:     []int{64, 64},
		Activation:       "tanh",
		InitGain:         math.Sqrt(2.0),
		PolicyStepSize:   5e-3,
		CriticStepSize:   5e-3,
		StepLimit:        500,
	}
}

// loadTrainConfig reads hyperparameters from a YAML file, starting
// from the defaults so that omitted fields keep their default values.
func loadTrainConfig(path string) (trainConfig, error) {
	config := defaultTrainConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("loadtrainconfig: %v", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("loadtrainconfig: could not parse "+
			"%v: %v", path, err)
	}
	return config, nil
}

// algorithmConfig converts the file-level hyperparameters into an
// algorithm configuration for an environment with numActions actions.
func (t trainConfig) algorithmConfig(
	numActions int) (actorcritic.Config, error) {
	activation, err := activationOf(t.Activation)
	if err != nil {
		return actorcritic.Config{}, err
	}

	policySolver, err := solver.NewDefaultAdam(t.PolicyStepSize, 1)
	if err != nil {
		return actorcritic.Config{}, fmt.Errorf("algorithmconfig: %v", err)
	}
	criticSolver, err := solver.NewDefaultAdam(t.CriticStepSize, 1)
	if err != nil {
		return actorcritic.Config{}, fmt.Errorf("algorithmconfig: %v", err)
	}

	return actorcritic.Config{
		NumActions:       numActions,
		RewardDecay:      t.RewardDecay,
		ActorTrainIters:  t.ActorTrainIters,
		CriticTrainIters: t.CriticTrainIters,
		K:                t.K,
		Lam:              t.Lam,

		PolicyLayers:      t.PolicyLayers,
		PolicyBiases:      trueBiases(len(t.PolicyLayers)),
		PolicyActivations: activations(activation, len(t.PolicyLayers)),
		CriticLayers:      t.CriticLayers,
		CriticBiases:      trueBiases(len(t.CriticLayers)),
		CriticActivations: activations(activation, len(t.CriticLayers)),
		RootLayers:        t.RootLayers,
		RootBiases:        trueBiases(len(t.RootLayers)),
		RootActivations:   activations(activation, len(t.RootLayers)),

		InitWFn:      initwfn.NewGlorotN(t.InitGain),
		PolicySolver: policySolver,
		CriticSolver: criticSolver,

		StandardizeAdvantages: t.StandardizeAdvantages,
	}, nil
}

// activationOf maps a configuration string to an Activation
func activationOf(name string) (*network.Activation, error) {
	switch name {
	case "relu":
		return network.ReLU(), nil
	case "tanh":
		return network.TanH(), nil
	default:
		return nil, fmt.Errorf("activationof: unknown activation %q", name)
	}
}

// trueBiases returns a bias flag for each of n layers
func trueBiases(n int) []bool {
	biases := make([]bool, n)
	for i := range biases {
		biases[i] = true
	}
	return biases
}

// activations returns act repeated once per layer
func activations(act *network.Activation, n int) []*network.Activation {
	acts := make([]*network.Activation, n)
	for i := range acts {
		acts[i] = act
	}
	return acts
}
