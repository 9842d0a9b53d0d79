package actorcritic

import (
	"github.com/njmarch/goac/initwfn"
	"github.com/njmarch/goac/network"
	"github.com/njmarch/goac/returns"
	"github.com/njmarch/goac/solver"
)

// Config describes an actor-critic algorithm. A Config is immutable
// once passed to New; the algorithm never modifies it.
type Config struct {
	// NumActions is the size of the discrete action set
	NumActions int

	// RewardDecay is the reward decay ℽ used when computing return
	// targets
	RewardDecay float64

	// ActorTrainIters is the number of gradient descent steps taken
	// on the policy per call to Train
	ActorTrainIters int

	// CriticTrainIters is the number of gradient descent steps taken
	// on the value function per call to Train
	CriticTrainIters int

	// K is the number of timesteps used when computing return
	// estimates. K may be returns.FullHorizon, in which case rewards
	// are accumulated until the end of the trajectory.
	K int

	// Lam is the λ coefficient mixing n-step returns. When Lam == 1
	// the usual K-step return is computed; when Lam < 1, Lam dominates
	// and K is ignored.
	Lam float64

	// Policy network architecture. In shared mode (see RootLayers)
	// these describe the actor head on top of the shared root stack.
	PolicyLayers      []int
	PolicyBiases      []bool
	PolicyActivations []*network.Activation

	// Value network architecture, or the critic head in shared mode.
	CriticLayers      []int
	CriticBiases      []bool
	CriticActivations []*network.Activation

	// RootLayers, when non-empty, gives the policy and value function
	// a shared trainable root stack. In this mode a combined
	// actor+critic loss is trained with PolicySolver alone, and
	// ActorTrainIters must equal CriticTrainIters.
	RootLayers      []int
	RootBiases      []bool
	RootActivations []*network.Activation

	// InitWFn determines the weight initialization scheme
	InitWFn *initwfn.InitWFn

	// PolicySolver performs gradient descent on the policy. In shared
	// mode it is the single solver for the combined loss.
	PolicySolver *solver.Solver

	// CriticSolver performs gradient descent on the value function.
	// Ignored in shared mode.
	CriticSolver *solver.Solver

	// CriticLoss is the regression loss between value predictions and
	// return targets. MeanSquaredError is used when nil.
	CriticLoss LossFn

	// StandardizeAdvantages rescales advantages to mean 0 and standard
	// deviation 1 before each policy update
	StandardizeAdvantages bool
}

// sharedLayers returns whether the config describes a model whose
// policy and value heads share a trainable root stack.
func (c Config) sharedLayers() bool {
	return len(c.RootLayers) > 0
}

// criticLoss returns the loss function to train the critic with
func (c Config) criticLoss() LossFn {
	if c.CriticLoss == nil {
		return MeanSquaredError
	}
	return c.CriticLoss
}

// Validate returns a ConfigError describing the first invalid
// hyperparameter found, or nil if the configuration is valid.
func (c Config) Validate() error {
	if c.NumActions < 1 {
		return &ConfigError{"NumActions", c.NumActions,
			"there must be at least one action"}
	}
	if c.RewardDecay < 0 || c.RewardDecay > 1 {
		return &ConfigError{"RewardDecay", c.RewardDecay,
			"reward decay must be in [0, 1]"}
	}
	if c.ActorTrainIters < 0 {
		return &ConfigError{"ActorTrainIters", c.ActorTrainIters,
			"iteration count cannot be negative"}
	}
	if c.CriticTrainIters < 0 {
		return &ConfigError{"CriticTrainIters", c.CriticTrainIters,
			"iteration count cannot be negative"}
	}
	if c.K != returns.FullHorizon && c.K < 1 {
		return &ConfigError{"K", c.K,
			"horizon must be positive or returns.FullHorizon"}
	}
	if c.Lam < 0 || c.Lam > 1 {
		return &ConfigError{"Lam", c.Lam, "lambda must be in [0, 1]"}
	}
	if c.InitWFn == nil {
		return &ConfigError{"InitWFn", nil,
			"a weight initializer is required"}
	}
	if c.PolicySolver == nil {
		return &ConfigError{"PolicySolver", nil, "a solver is required"}
	}
	if !c.sharedLayers() && c.CriticSolver == nil {
		return &ConfigError{"CriticSolver", nil,
			"a solver is required when no layers are shared"}
	}
	if c.sharedLayers() && c.ActorTrainIters != c.CriticTrainIters {
		return &ConfigError{"ActorTrainIters", c.ActorTrainIters,
			"iteration counts must match when layers are shared, since " +
				"every step of the combined loss moves both heads"}
	}
	return nil
}
