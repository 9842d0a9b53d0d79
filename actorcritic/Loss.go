package actorcritic

import (
	G "gorgonia.org/gorgonia"
)

// LossFn adds a scalar regression loss between a prediction node and a
// fixed target node to the nodes' computational graph. The critic is
// trained with a caller-supplied LossFn; MeanSquaredError is used when
// none is given.
type LossFn func(prediction, target *G.Node) (*G.Node, error)

// MeanSquaredError builds the mean squared error between prediction
// and target.
func MeanSquaredError(prediction, target *G.Node) (*G.Node, error) {
	loss, err := G.Sub(prediction, target)
	if err != nil {
		return nil, err
	}
	if loss, err = G.Square(loss); err != nil {
		return nil, err
	}
	return G.Mean(loss)
}

// MeanAbsoluteError builds the mean absolute error between prediction
// and target.
func MeanAbsoluteError(prediction, target *G.Node) (*G.Node, error) {
	loss, err := G.Sub(prediction, target)
	if err != nil {
		return nil, err
	}
	if loss, err = G.Abs(loss); err != nil {
		return nil, err
	}
	return G.Mean(loss)
}
