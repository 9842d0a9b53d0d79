package solver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSolverJSON verifies that a Solver survives serialization into a
// configuration file: the deserialized Solver has the same type and
// hyperparameters and carries a usable Gorgonia solver.
func TestSolverJSON(t *testing.T) {
	adam, err := NewAdam(0.001, 1e-8, 0.9, 0.999, 32)
	require.NoError(t, err)

	data, err := json.Marshal(adam)
	require.NoError(t, err)

	var loaded Solver
	require.NoError(t, json.Unmarshal(data, &loaded))

	assert.Equal(t, Adam, loaded.Type)
	assert.Equal(t, adam.Config, loaded.Config)
	assert.NotNil(t, loaded.Solver)
}

func TestSolverUnmarshalUnknownType(t *testing.T) {
	var loaded Solver
	err := json.Unmarshal([]byte(`{"Type":"Newton","Config":{}}`), &loaded)
	assert.Error(t, err)
}

func TestNewSolverInvalidType(t *testing.T) {
	_, err := newSolver(Adam, VanillaConfig{StepSize: 0.1, Batch: 1})
	assert.Error(t, err)
}
