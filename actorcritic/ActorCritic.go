// Package actorcritic implements an actor-critic policy-gradient
// algorithm for discrete action sets. Trajectories of (state, action,
// reward) triples flow through lambda-return estimation and advantage
// computation into repeated gradient updates of a policy network and a
// value network, which may optionally share trainable layers.
package actorcritic

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/njmarch/goac/network"
	"github.com/njmarch/goac/returns"
	"github.com/njmarch/goac/trajectory"
	"github.com/njmarch/goac/utils/floatutils"
)

// normalizationTolerance bounds how far the probabilities predicted by
// the policy may drift from summing to 1 before sampling fails.
const normalizationTolerance = 1e-6

// TrainStats reports what a single call to Train computed and how the
// losses developed across its gradient descent iterations.
type TrainStats struct {
	// Returns holds the lambda-return target for every timestep
	Returns []float64

	// Advantages holds the advantage estimate that scaled the policy
	// gradient at every timestep
	Advantages []float64

	// ActorLoss holds the policy loss measured at each actor
	// iteration, before that iteration's gradient step
	ActorLoss []float64

	// CriticLoss holds the value-function loss measured at each critic
	// iteration, before that iteration's gradient step
	CriticLoss []float64
}

// ActorCritic implements the actor-critic algorithm with lambda-return
// targets. The policy and value function are gorgonia neural networks,
// either independent or sharing a trainable root stack.
//
// An ActorCritic is exclusively owned: parameters are mutated in place
// by Train, and no method may be called concurrently with another. If
// parallel collectors feed one instance, the caller must serialize the
// calls.
type ActorCritic struct {
	config   Config
	features int

	// Inference-mode networks holding the canonical weights. These
	// graphs carry no gradient information, so sampling can never leak
	// gradient state into training.
	samplePolicy network.NeuralNet
	sampleVM     G.VM

	// Canonical value function. Nil in shared mode, where samplePolicy
	// holds both heads.
	valueFn network.NeuralNet

	// Output index of the value prediction on the evaluation network:
	// int(network.Critic) in shared mode, 0 on a single-head network
	criticOut int

	src rand.Source

	graphs *trainGraphs
}

// trainGraphs holds the gradient-tracked graphs used by Train. Batch
// shapes are static in gorgonia, so the graphs are rebuilt whenever
// the observed trajectory length changes.
type trainGraphs struct {
	batch int

	// Policy gradient step. In shared mode policyNet is the single
	// multi-task network and policyVM runs the combined loss.
	policyNet  network.NeuralNet
	actionMask *G.Node
	advantages *G.Node
	actorLoss  G.Value
	policyVM   G.VM

	// Critic regression step. In shared mode criticNet and criticVM
	// are nil: the critic trains through policyVM.
	criticNet  network.NeuralNet
	targets    *G.Node
	criticLoss G.Value
	criticVM   G.VM

	// Inference-mode clone used to compute the value estimates that
	// return targets bootstrap from
	evalNet network.NeuralNet
	evalVM  G.VM
}

// New returns a new ActorCritic for states with the given number of
// features. All networks are constructed here; the seed determines
// both weight initialization noise and action sampling.
func New(features int, c Config, seed uint64) (*ActorCritic, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if features <= 0 {
		return nil, &ConfigError{"features", features,
			"states must have at least one feature"}
	}

	a := &ActorCritic{
		config:   c,
		features: features,
		src:      rand.NewSource(seed),
	}

	init := c.InitWFn.InitWFn()
	if c.sharedLayers() {
		net, err := network.NewMultiTaskMLP(features, 1, c.NumActions,
			G.NewGraph(), c.RootLayers, c.RootBiases, c.RootActivations,
			c.PolicyLayers, c.PolicyBiases, c.PolicyActivations,
			c.CriticLayers, c.CriticBiases, c.CriticActivations, init)
		if err != nil {
			return nil, fmt.Errorf("new: could not create shared "+
				"network: %v", err)
		}
		a.samplePolicy = net
		a.criticOut = int(network.Critic)
	} else {
		policy, err := network.NewMultiHeadMLP(features, 1, c.NumActions,
			G.NewGraph(), c.PolicyLayers, c.PolicyBiases, init,
			c.PolicyActivations)
		if err != nil {
			return nil, fmt.Errorf("new: could not create policy "+
				"network: %v", err)
		}
		valueFn, err := network.NewMultiHeadMLP(features, 1, 1,
			G.NewGraph(), c.CriticLayers, c.CriticBiases, init,
			c.CriticActivations)
		if err != nil {
			return nil, fmt.Errorf("new: could not create value "+
				"network: %v", err)
		}
		a.samplePolicy = policy
		a.valueFn = valueFn
		a.criticOut = 0
	}
	a.sampleVM = G.NewTapeMachine(a.samplePolicy.Graph())

	return a, nil
}

// Config returns the configuration the algorithm was constructed with
func (a *ActorCritic) Config() Config {
	return a.config
}

// Features returns the state dimensionality the algorithm expects
func (a *ActorCritic) Features() int {
	return a.features
}

// SelectAction samples a discrete action from the policy's action
// distribution at the given state. The policy is evaluated in
// inference mode; no parameters are mutated and no gradients are
// tracked.
func (a *ActorCritic) SelectAction(state []float64) (int, error) {
	if len(state) != a.features {
		return 0, &ShapeError{Op: "selectaction", Want: a.features,
			Have: len(state)}
	}

	if err := a.samplePolicy.SetInput(state); err != nil {
		return 0, fmt.Errorf("selectaction: %v", err)
	}
	if err := a.sampleVM.RunAll(); err != nil {
		return 0, fmt.Errorf("selectaction: could not run policy: %v", err)
	}
	logits := a.samplePolicy.Output()[network.Actor].Data().([]float64)
	probs := floatutils.Softmax(logits)
	a.sampleVM.Reset()

	if err := validateDistribution(probs); err != nil {
		return 0, err
	}

	dist := distuv.NewCategorical(probs, a.src)
	return int(dist.Rand()), nil
}

// Probabilities returns the policy's action distribution at the given
// state, evaluated in inference mode.
func (a *ActorCritic) Probabilities(state []float64) ([]float64, error) {
	if len(state) != a.features {
		return nil, &ShapeError{Op: "probabilities", Want: a.features,
			Have: len(state)}
	}

	if err := a.samplePolicy.SetInput(state); err != nil {
		return nil, fmt.Errorf("probabilities: %v", err)
	}
	if err := a.sampleVM.RunAll(); err != nil {
		return nil, fmt.Errorf("probabilities: could not run policy: %v",
			err)
	}
	logits := a.samplePolicy.Output()[network.Actor].Data().([]float64)
	probs := floatutils.Softmax(logits)
	a.sampleVM.Reset()

	return probs, nil
}

// Train updates the policy and value function from one trajectory. The
// trajectory is borrowed for the duration of the call and not retained.
//
// Value estimates for every state are computed with the current
// parameters, lambda-return targets and advantages are derived from
// them, and then ActorTrainIters policy updates and CriticTrainIters
// value updates run. Return targets stay fixed across all iterations
// within the call; action probabilities and value predictions are
// recomputed each iteration under the freshly stepped parameters.
func (a *ActorCritic) Train(traj *trajectory.Trajectory) (*TrainStats,
	error) {
	if traj.Features() != a.features {
		return nil, &ShapeError{Op: "train", Want: a.features,
			Have: traj.Features()}
	}
	T := traj.Len()
	if T == 0 {
		return &TrainStats{}, nil
	}
	for t, action := range traj.Actions() {
		if action >= a.config.NumActions {
			return nil, fmt.Errorf("train: action %v at timestep %v "+
				"outside action set of size %v", action, t,
				a.config.NumActions)
		}
	}

	if a.graphs == nil || a.graphs.batch != T {
		graphs, err := a.buildTrainGraphs(T)
		if err != nil {
			return nil, fmt.Errorf("train: %v", err)
		}
		a.graphs = graphs
	}
	if err := a.syncTrainWeights(); err != nil {
		return nil, fmt.Errorf("train: could not load current "+
			"parameters: %v", err)
	}

	values, err := a.stateValues(traj.States())
	if err != nil {
		return nil, fmt.Errorf("train: %v", err)
	}

	targets, err := returns.Lambda(traj.Rewards(), values,
		a.config.RewardDecay, a.config.Lam, a.config.K)
	if err != nil {
		return nil, fmt.Errorf("train: %v", err)
	}
	advantages, err := returns.Advantages(targets, values)
	if err != nil {
		return nil, fmt.Errorf("train: %v", err)
	}
	if a.config.StandardizeAdvantages {
		advantages = returns.Standardize(advantages)
	}

	stats := &TrainStats{Returns: targets, Advantages: advantages}
	if a.config.sharedLayers() {
		err = a.trainShared(traj, advantages, targets, stats)
	} else {
		err = a.trainSeparate(traj, advantages, targets, stats)
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"timesteps":   T,
		"actorIters":  len(stats.ActorLoss),
		"criticIters": len(stats.CriticLoss),
	}).Debug("train: completed update")

	return stats, nil
}

// trainSeparate runs the policy and value updates on independent
// networks: ActorTrainIters gradient steps on the policy loss followed
// by CriticTrainIters steps on the critic loss, then writes the
// stepped weights back to the canonical inference networks.
func (a *ActorCritic) trainSeparate(traj *trajectory.Trajectory,
	advantages, targets []float64, stats *TrainStats) error {
	g := a.graphs

	for i := 0; i < a.config.ActorTrainIters; i++ {
		if err := a.bindPolicyInputs(traj, advantages); err != nil {
			return fmt.Errorf("train: %v", err)
		}
		if err := g.policyVM.RunAll(); err != nil {
			return fmt.Errorf("train: could not run policy update: %v", err)
		}
		if err := a.config.PolicySolver.Step(g.policyNet.Model()); err != nil {
			return fmt.Errorf("train: could not step policy: %v", err)
		}
		g.policyVM.Reset()
		stats.ActorLoss = append(stats.ActorLoss,
			g.actorLoss.Data().(float64))
	}

	for i := 0; i < a.config.CriticTrainIters; i++ {
		if err := a.bindCriticInputs(traj, targets); err != nil {
			return fmt.Errorf("train: %v", err)
		}
		if err := g.criticVM.RunAll(); err != nil {
			return fmt.Errorf("train: could not run critic update: %v", err)
		}
		if err := a.config.CriticSolver.Step(g.criticNet.Model()); err != nil {
			return fmt.Errorf("train: could not step critic: %v", err)
		}
		g.criticVM.Reset()
		stats.CriticLoss = append(stats.CriticLoss,
			g.criticLoss.Data().(float64))
	}

	if err := network.Set(a.samplePolicy, g.policyNet); err != nil {
		return fmt.Errorf("train: could not publish policy weights: %v", err)
	}
	if err := network.Set(a.valueFn, g.criticNet); err != nil {
		return fmt.Errorf("train: could not publish critic weights: %v", err)
	}
	return nil
}

// trainShared runs gradient steps on the combined actor+critic loss of
// a network with shared layers. The iteration counts are equal by
// construction (see Config.Validate), so a single loop steps both
// heads.
func (a *ActorCritic) trainShared(traj *trajectory.Trajectory,
	advantages, targets []float64, stats *TrainStats) error {
	g := a.graphs

	for i := 0; i < a.config.ActorTrainIters; i++ {
		if err := a.bindPolicyInputs(traj, advantages); err != nil {
			return fmt.Errorf("train: %v", err)
		}
		targetsTensor := tensor.NewDense(
			tensor.Float64,
			g.targets.Shape(),
			tensor.WithBacking(targets),
		)
		if err := G.Let(g.targets, targetsTensor); err != nil {
			return fmt.Errorf("train: could not set return targets: %v", err)
		}

		if err := g.policyVM.RunAll(); err != nil {
			return fmt.Errorf("train: could not run combined update: %v",
				err)
		}
		if err := a.config.PolicySolver.Step(g.policyNet.Model()); err != nil {
			return fmt.Errorf("train: could not step shared network: %v",
				err)
		}
		g.policyVM.Reset()
		stats.ActorLoss = append(stats.ActorLoss,
			g.actorLoss.Data().(float64))
		stats.CriticLoss = append(stats.CriticLoss,
			g.criticLoss.Data().(float64))
	}

	if err := network.Set(a.samplePolicy, g.policyNet); err != nil {
		return fmt.Errorf("train: could not publish weights: %v", err)
	}
	return nil
}

// bindPolicyInputs binds the trajectory states, the one-hot mask of
// taken actions, and the advantages to the policy training graph.
func (a *ActorCritic) bindPolicyInputs(traj *trajectory.Trajectory,
	advantages []float64) error {
	g := a.graphs
	if err := g.policyNet.SetInput(traj.States()); err != nil {
		return err
	}

	numActions := a.config.NumActions
	mask := make([]float64, traj.Len()*numActions)
	for t, action := range traj.Actions() {
		mask[t*numActions+action] = 1.0
	}
	maskTensor := tensor.NewDense(
		tensor.Float64,
		g.actionMask.Shape(),
		tensor.WithBacking(mask),
	)
	if err := G.Let(g.actionMask, maskTensor); err != nil {
		return err
	}

	advTensor := tensor.NewDense(
		tensor.Float64,
		g.advantages.Shape(),
		tensor.WithBacking(advantages),
	)
	return G.Let(g.advantages, advTensor)
}

// bindCriticInputs binds the trajectory states and the fixed return
// targets to the critic training graph.
func (a *ActorCritic) bindCriticInputs(traj *trajectory.Trajectory,
	targets []float64) error {
	g := a.graphs
	if err := g.criticNet.SetInput(traj.States()); err != nil {
		return err
	}

	targetsTensor := tensor.NewDense(
		tensor.Float64,
		g.targets.Shape(),
		tensor.WithBacking(targets),
	)
	return G.Let(g.targets, targetsTensor)
}

// stateValues evaluates the value function on every state of a
// trajectory in inference mode, returning one value per timestep.
func (a *ActorCritic) stateValues(states []float64) ([]float64, error) {
	g := a.graphs
	if err := g.evalNet.SetInput(states); err != nil {
		return nil, err
	}
	if err := g.evalVM.RunAll(); err != nil {
		return nil, fmt.Errorf("could not evaluate value function: %v", err)
	}
	raw := g.evalNet.Output()[a.criticOut].Data().([]float64)
	values := append([]float64{}, raw...)
	g.evalVM.Reset()

	return values, nil
}

// syncTrainWeights copies the canonical weights into the training and
// evaluation graphs before an update.
func (a *ActorCritic) syncTrainWeights() error {
	g := a.graphs
	if err := network.Set(g.policyNet, a.samplePolicy); err != nil {
		return err
	}
	if a.config.sharedLayers() {
		return network.Set(g.evalNet, a.samplePolicy)
	}

	if err := network.Set(g.criticNet, a.valueFn); err != nil {
		return err
	}
	return network.Set(g.evalNet, a.valueFn)
}

// buildTrainGraphs constructs the gradient-tracked training graphs and
// the inference-mode evaluation graph for trajectories of length batch.
func (a *ActorCritic) buildTrainGraphs(batch int) (*trainGraphs, error) {
	g := &trainGraphs{batch: batch}

	policyNet, err := a.samplePolicy.CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("could not clone policy network: %v", err)
	}
	g.policyNet = policyNet

	logits := policyNet.Prediction()[network.Actor]
	graph := policyNet.Graph()

	// Log probability of the taken actions, computed from logits so
	// that no logarithm of a zero probability is ever evaluated
	g.actionMask = G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(logits.Shape()...),
		G.WithInit(G.Zeroes()),
		G.WithName("ActionMask"),
	)
	takenLogits := G.Must(G.HadamardProd(g.actionMask, logits))
	takenLogits = G.Must(G.Sum(takenLogits, 1))
	logProb := G.Must(G.Sub(takenLogits, logSumExp(logits, 1)))

	g.advantages = G.NewVector(
		graph,
		tensor.Float64,
		G.WithShape(batch),
		G.WithName("Advantages"),
	)
	actorLoss := G.Must(G.HadamardProd(logProb, g.advantages))
	actorLoss = G.Must(G.Mean(actorLoss))
	actorLoss = G.Must(G.Neg(actorLoss))
	G.Read(actorLoss, &g.actorLoss)

	if a.config.sharedLayers() {
		// Combined loss on the single multi-task graph
		criticPred := policyNet.Prediction()[network.Critic]
		g.targets = G.NewMatrix(
			graph,
			tensor.Float64,
			G.WithShape(criticPred.Shape()...),
			G.WithName("ReturnTargets"),
		)
		criticLoss, err := a.config.criticLoss()(criticPred, g.targets)
		if err != nil {
			return nil, fmt.Errorf("could not build critic loss: %v", err)
		}
		G.Read(criticLoss, &g.criticLoss)

		combined := G.Must(G.Add(actorLoss, criticLoss))
		if _, err := G.Grad(combined, policyNet.Learnables()...); err != nil {
			return nil, fmt.Errorf("could not compute combined "+
				"gradient: %v", err)
		}
		g.policyVM = G.NewTapeMachine(graph,
			G.BindDualValues(policyNet.Learnables()...))
	} else {
		if _, err := G.Grad(actorLoss,
			policyNet.Learnables()...); err != nil {
			return nil, fmt.Errorf("could not compute policy gradient: %v",
				err)
		}
		g.policyVM = G.NewTapeMachine(graph,
			G.BindDualValues(policyNet.Learnables()...))

		criticNet, err := a.valueFn.CloneWithBatch(batch)
		if err != nil {
			return nil, fmt.Errorf("could not clone value network: %v", err)
		}
		g.criticNet = criticNet

		criticPred := criticNet.Prediction()[0]
		g.targets = G.NewMatrix(
			criticNet.Graph(),
			tensor.Float64,
			G.WithShape(criticPred.Shape()...),
			G.WithName("ReturnTargets"),
		)
		criticLoss, err := a.config.criticLoss()(criticPred, g.targets)
		if err != nil {
			return nil, fmt.Errorf("could not build critic loss: %v", err)
		}
		G.Read(criticLoss, &g.criticLoss)
		if _, err := G.Grad(criticLoss,
			criticNet.Learnables()...); err != nil {
			return nil, fmt.Errorf("could not compute critic gradient: %v",
				err)
		}
		g.criticVM = G.NewTapeMachine(criticNet.Graph(),
			G.BindDualValues(criticNet.Learnables()...))
	}

	// Inference-mode clone for value estimation. No gradients are
	// bound on this graph.
	var evalSource network.NeuralNet = a.valueFn
	if a.config.sharedLayers() {
		evalSource = a.samplePolicy
	}
	evalNet, err := evalSource.CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("could not clone evaluation network: %v", err)
	}
	g.evalNet = evalNet
	g.evalVM = G.NewTapeMachine(evalNet.Graph())

	return g, nil
}

// logSumExp adds a numerically stable log-sum-exp reduction of logits
// along the given axis to the graph.
func logSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// validateDistribution returns a NumericError if probs is not a valid
// probability distribution: every entry must be finite and
// non-negative and the entries must sum to 1 within tolerance.
func validateDistribution(probs []float64) error {
	var sum float64
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return &NumericError{
				Op: "selectaction",
				Reason: fmt.Sprintf("action %v has non-finite "+
					"probability %v", i, p),
			}
		}
		if p < 0 {
			return &NumericError{
				Op: "selectaction",
				Reason: fmt.Sprintf("action %v has negative "+
					"probability %v", i, p),
			}
		}
		sum += p
	}
	if math.Abs(sum-1) > normalizationTolerance {
		return &NumericError{
			Op: "selectaction",
			Reason: fmt.Sprintf("distribution sums to %v, not 1 within "+
				"tolerance %v", sum, normalizationTolerance),
		}
	}
	return nil
}
