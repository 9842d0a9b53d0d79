// Package trajectory implements storage for a single episode of
// agent-environment interaction
package trajectory

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Trajectory records the (state, action, reward) triples observed
// during one episode. States are stored flattened in row major order,
// one row per timestep. The record is append-only while an episode is
// being collected and is treated as read-only by training code, which
// borrows it for the duration of a single training call.
type Trajectory struct {
	features int // Size of state observations

	states  []float64
	actions []int
	rewards []float64
}

// New returns an empty Trajectory holding states of the given
// dimensionality.
func New(features int) (*Trajectory, error) {
	if features <= 0 {
		return nil, fmt.Errorf("new: features must be positive \n\thave(%v)",
			features)
	}
	return &Trajectory{features: features}, nil
}

// Append adds a single timestep to the end of the trajectory.
func (t *Trajectory) Append(state []float64, action int,
	reward float64) error {
	if len(state) != t.features {
		return fmt.Errorf("append: illegal state length \n\twant(%v)"+
			"\n\thave(%v)", t.features, len(state))
	}
	if action < 0 {
		return fmt.Errorf("append: illegal action index %v", action)
	}

	t.states = append(t.states, state...)
	t.actions = append(t.actions, action)
	t.rewards = append(t.rewards, reward)
	return nil
}

// Len returns the number of timesteps recorded so far.
func (t *Trajectory) Len() int {
	return len(t.rewards)
}

// Features returns the size of a single state observation.
func (t *Trajectory) Features() int {
	return t.features
}

// States returns all recorded states, flattened in row major order.
// The returned slice aliases the trajectory's backing storage.
func (t *Trajectory) States() []float64 {
	return t.states
}

// State returns the state observation at timestep i as a vector.
func (t *Trajectory) State(i int) *mat.VecDense {
	start := i * t.features
	return mat.NewVecDense(t.features, t.states[start:start+t.features])
}

// Actions returns the action index taken at each timestep.
func (t *Trajectory) Actions() []int {
	return t.actions
}

// Rewards returns the reward received at each timestep.
func (t *Trajectory) Rewards() []float64 {
	return t.rewards
}
