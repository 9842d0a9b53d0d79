package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// multiTaskMLP implements a multi-layered perceptron with a shared
// root stack feeding two task heads. The actor head predicts one logit
// per discrete action and the critic head predicts a single state
// value. A diagram:
//
//	Input ─→ Root Net ─┬─→ Actor Head  ─→ numActions logits
//	                   ╰─→ Critic Head ─→ 1 state value
//
// Because both heads backpropagate into the root stack, a gradient
// step through either head moves shared parameters; callers detect
// this through SharedLayers() and train a combined loss.
type multiTaskMLP struct {
	g     *G.ExprGraph
	input *G.Node

	root   []Layer
	actor  []Layer
	critic []Layer

	numActions int
	numInputs  int
	batchSize  int

	// Architecture, needed for cloning
	rootSizes   []int
	rootBiases  []bool
	rootActs    []*Activation
	actorSizes  []int
	actorBiases []bool
	actorActs   []*Activation
	criticSizes []int
	criticActs  []*Activation
	criticBias  []bool

	learnables G.Nodes
	model      []G.ValueGrad

	predictions []*G.Node
	predVals    []G.Value
}

// NewMultiTaskMLP creates and returns a new MLP with a shared root
// stack and separate actor and critic heads. The root stack must have
// at least one layer, since otherwise nothing is shared and two
// independent networks should be used instead. Each head always ends
// in an appended linear layer producing its outputs (numActions logits
// for the actor, one value for the critic), so the head stacks may be
// empty.
func NewMultiTaskMLP(features, batch, numActions int, g *G.ExprGraph,
	rootSizes []int, rootBiases []bool, rootActivations []*Activation,
	actorSizes []int, actorBiases []bool, actorActivations []*Activation,
	criticSizes []int, criticBiases []bool, criticActivations []*Activation,
	init G.InitWFn) (NeuralNet, error) {
	if len(rootSizes) == 0 {
		return nil, fmt.Errorf("newmultitaskmlp: root stack must have at " +
			"least one layer")
	}
	if numActions <= 0 {
		return nil, fmt.Errorf("newmultitaskmlp: there must be at least "+
			"one action \n\thave(%v)", numActions)
	}
	for _, stack := range []struct {
		name  string
		sizes []int
		bias  []bool
		acts  []*Activation
	}{
		{"root", rootSizes, rootBiases, rootActivations},
		{"actor", actorSizes, actorBiases, actorActivations},
		{"critic", criticSizes, criticBiases, criticActivations},
	} {
		if err := validateStack(stack.name, stack.sizes, stack.bias,
			stack.acts); err != nil {
			return nil, fmt.Errorf("newmultitaskmlp: %v", err)
		}
	}

	// Final linear layers predicting each head's outputs
	actorSizes = append(append([]int{}, actorSizes...), numActions)
	actorBiases = append(append([]bool{}, actorBiases...), true)
	actorActivations = append(append([]*Activation{}, actorActivations...),
		Identity())
	criticSizes = append(append([]int{}, criticSizes...), 1)
	criticBiases = append(append([]bool{}, criticBiases...), true)
	criticActivations = append(append([]*Activation{}, criticActivations...),
		Identity())

	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	rootOut := rootSizes[len(rootSizes)-1]
	net := &multiTaskMLP{
		g:     g,
		input: input,
		root: addLayers(g, rootSizes, rootBiases, rootActivations, init,
			features, "Root"),
		actor: addLayers(g, actorSizes, actorBiases, actorActivations, init,
			rootOut, "Actor"),
		critic: addLayers(g, criticSizes, criticBiases, criticActivations,
			init, rootOut, "Critic"),
		numActions:  numActions,
		numInputs:   features,
		batchSize:   batch,
		rootSizes:   rootSizes,
		rootBiases:  rootBiases,
		rootActs:    rootActivations,
		actorSizes:  actorSizes,
		actorBiases: actorBiases,
		actorActs:   actorActivations,
		criticSizes: criticSizes,
		criticBias:  criticBiases,
		criticActs:  criticActivations,
	}
	if err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("newmultitaskmlp: could not compute "+
			"forward pass: %v", err)
	}

	return net, nil
}

// Graph returns the computational graph of the multiTaskMLP.
func (m *multiTaskMLP) Graph() *G.ExprGraph {
	return m.g
}

// CloneWithBatch clones a multiTaskMLP onto a fresh graph with a new
// input batch size. Weight values are copied.
func (m *multiTaskMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	graph := G.NewGraph()

	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, m.numInputs),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	cloneStack := func(layers []Layer) []Layer {
		cloned := make([]Layer, len(layers))
		for i := range layers {
			cloned[i] = layers[i].CloneTo(graph)
		}
		return cloned
	}

	net := &multiTaskMLP{
		g:           graph,
		input:       input,
		root:        cloneStack(m.root),
		actor:       cloneStack(m.actor),
		critic:      cloneStack(m.critic),
		numActions:  m.numActions,
		numInputs:   m.numInputs,
		batchSize:   batchSize,
		rootSizes:   m.rootSizes,
		rootBiases:  m.rootBiases,
		rootActs:    m.rootActs,
		actorSizes:  m.actorSizes,
		actorBiases: m.actorBiases,
		actorActs:   m.actorActs,
		criticSizes: m.criticSizes,
		criticBias:  m.criticBias,
		criticActs:  m.criticActs,
	}
	if err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not compute "+
			"forward pass: %v", err)
	}

	return net, nil
}

// BatchSize returns the number of input rows the network operates on
func (m *multiTaskMLP) BatchSize() int {
	return m.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input.
func (m *multiTaskMLP) Features() int {
	return m.numInputs
}

// SharedLayers reports that the actor and critic heads share the
// trainable root stack.
func (m *multiTaskMLP) SharedLayers() bool {
	return true
}

// SetInput sets the value of the input node before running the forward
// pass.
func (m *multiTaskMLP) SetInput(input []float64) error {
	if len(input) != m.numInputs*m.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs \n\twant(%v)"+
			"\n\thave(%v)", m.numInputs*m.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(m.input.Shape()...),
	)
	return G.Let(m.input, inputTensor)
}

// Learnables returns the learnable nodes in a multiTaskMLP
func (m *multiTaskMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if m.learnables == nil {
		m.learnables = append(m.learnables,
			learnablesOf(m.root)...)
		m.learnables = append(m.learnables, learnablesOf(m.actor)...)
		m.learnables = append(m.learnables, learnablesOf(m.critic)...)
	}
	return m.learnables
}

// Model returns the learnable nodes with their gradients.
func (m *multiTaskMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if m.model == nil {
		m.model = modelOf(m.Learnables())
	}
	return m.model
}

// fwd performs the forward pass of the multiTaskMLP on the input node
func (m *multiTaskMLP) fwd(input *G.Node) error {
	hidden := input
	var err error
	for i, l := range m.root {
		if hidden, err = l.fwd(hidden); err != nil {
			return fmt.Errorf("fwd: could not compute forward pass of "+
				"root layer %v: %v", i, err)
		}
	}

	heads := [][]Layer{Actor: m.actor, Critic: m.critic}
	m.predictions = make([]*G.Node, len(heads))
	m.predVals = make([]G.Value, len(heads))
	for task, head := range heads {
		pred := hidden
		for i, l := range head {
			if pred, err = l.fwd(pred); err != nil {
				return fmt.Errorf("fwd: could not compute forward pass "+
					"of %v layer %v: %v", Task(task), i, err)
			}
		}
		m.predictions[task] = pred
		G.Read(m.predictions[task], &m.predVals[task])
	}

	return nil
}

// Output returns the value of each head's prediction node after the
// last VM run, indexed by Task.
func (m *multiTaskMLP) Output() []G.Value {
	return m.predVals
}

// Prediction returns the nodes of the computational graph that store
// each head's prediction, indexed by Task.
func (m *multiTaskMLP) Prediction() []*G.Node {
	return m.predictions
}
