// Package network implements the differentiable function approximators
// that back the policy and value heads of an actor-critic algorithm
package network

import (
	G "gorgonia.org/gorgonia"
)

// Task identifies one head of a multi-task network. A Task indexes
// into the slices returned by Prediction() and Output().
type Task int

const (
	// Actor is the head producing one logit per discrete action
	Actor Task = iota

	// Critic is the head producing a single state-value estimate
	Critic
)

// String implements the fmt.Stringer interface
func (t Task) String() string {
	switch t {
	case Actor:
		return "Actor"
	case Critic:
		return "Critic"
	default:
		return "Unknown"
	}
}

// NeuralNet implements a neural network on a Gorgonia computational
// graph. A NeuralNet may have one or more output heads; the network's
// predictions are the nodes returned by Prediction(), and their values
// after a VM run are returned by Output().
//
// A NeuralNet only ever adds nodes to a graph. Running the graph,
// computing gradients, and stepping weights are left to the code that
// owns the network, so that the same network type can serve both
// gradient-tracked training and inference-only evaluation.
type NeuralNet interface {
	// Graph returns the computational graph holding the network
	Graph() *G.ExprGraph

	// CloneWithBatch clones the network onto a fresh graph with a new
	// input batch size. Weight values are copied, not shared.
	CloneWithBatch(int) (NeuralNet, error)

	// BatchSize returns the number of rows of the input node
	BatchSize() int

	// Features returns the size of a single input observation
	Features() int

	// SetInput sets the value of the input node before a VM run. The
	// input must hold BatchSize() observations in row major order.
	SetInput([]float64) error

	// Learnables returns the learnable nodes of the network
	Learnables() G.Nodes

	// Model returns the learnable nodes with their gradients, in the
	// form expected by a Gorgonia solver
	Model() []G.ValueGrad

	// Prediction returns the output node of each head
	Prediction() []*G.Node

	// Output returns the value of each head's output node after the
	// last VM run
	Output() []G.Value

	// SharedLayers reports whether the network's heads share trainable
	// layers. When true, a gradient step through one head moves
	// parameters that the other head also depends on.
	SharedLayers() bool
}

// Set copies the weight values of a source network into a destination
// network. The two networks must have identical architectures; they
// may live on different graphs and have different batch sizes.
func Set(dest, source NeuralNet) error {
	sourceNodes := source.Learnables()
	destNodes := dest.Learnables()
	for i, destLearnable := range destNodes {
		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(destLearnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}
