package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
)

// newTestMultiTaskMLP returns a small shared-root network for states
// with two features and three actions.
func newTestMultiTaskMLP(t *testing.T, batch int, init G.InitWFn) NeuralNet {
	t.Helper()

	net, err := NewMultiTaskMLP(2, batch, 3, G.NewGraph(),
		[]int{4}, []bool{true}, []*Activation{TanH()},
		nil, nil, nil,
		nil, nil, nil,
		init)
	require.NoError(t, err)
	return net
}

func TestNewMultiTaskMLPInvalid(t *testing.T) {
	_, err := NewMultiTaskMLP(2, 1, 3, G.NewGraph(),
		nil, nil, nil,
		nil, nil, nil,
		nil, nil, nil,
		G.Zeroes())
	assert.Error(t, err, "empty root stack")

	_, err = NewMultiTaskMLP(2, 1, 0, G.NewGraph(),
		[]int{4}, []bool{true}, []*Activation{TanH()},
		nil, nil, nil,
		nil, nil, nil,
		G.Zeroes())
	assert.Error(t, err, "no actions")

	_, err = NewMultiTaskMLP(2, 1, 3, G.NewGraph(),
		[]int{4}, []bool{true, true}, []*Activation{TanH()},
		nil, nil, nil,
		nil, nil, nil,
		G.Zeroes())
	assert.Error(t, err, "extra root bias flag")
}

// TestMultiTaskMLPForward verifies that both heads predict from one
// forward pass and that zero weights produce zero outputs of the
// correct sizes.
func TestMultiTaskMLPForward(t *testing.T) {
	net := newTestMultiTaskMLP(t, 2, G.Zeroes())

	assert.True(t, net.SharedLayers())
	require.Len(t, net.Prediction(), 2)

	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()

	require.NoError(t, net.SetInput([]float64{1, 2, -1, -2}))
	require.NoError(t, vm.RunAll())

	logits := net.Output()[Actor].Data().([]float64)
	require.Len(t, logits, 2*3)
	for _, logit := range logits {
		assert.Zero(t, logit)
	}

	values := net.Output()[Critic].Data().([]float64)
	require.Len(t, values, 2)
	for _, v := range values {
		assert.Zero(t, v)
	}
}

func TestMultiTaskMLPCloneWithBatch(t *testing.T) {
	net := newTestMultiTaskMLP(t, 1, G.GlorotU(1.0))

	clone, err := net.CloneWithBatch(5)
	require.NoError(t, err)

	assert.Equal(t, 5, clone.BatchSize())
	assert.True(t, clone.SharedLayers())
	require.Equal(t, len(net.Learnables()), len(clone.Learnables()))

	for i, learnable := range net.Learnables() {
		want := learnable.Value().Data().([]float64)
		have := clone.Learnables()[i].Value().Data().([]float64)
		assert.Equal(t, want, have)
	}
}

func TestTaskString(t *testing.T) {
	assert.Equal(t, "Actor", Actor.String())
	assert.Equal(t, "Critic", Critic.String())
}
