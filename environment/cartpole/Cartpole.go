// Package cartpole implements the Cartpole classic control environment
// as a self-contained rollout collaborator for the example trainer
package cartpole

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/njmarch/goac/utils/floatutils"
)

const (
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnification of force applied
	Dt             float64 = 0.02 // seconds between state updates

	// Episode ends when the cart or pole leaves these bounds
	PositionBounds float64 = 2.4
	AngleBounds    float64 = 12.0 * 2.0 * math.Pi / 360.0

	// Bound (+/-) on each state feature of a starting state
	startBounds float64 = 0.05

	// Discrete actions
	ActionLeft    int = 0
	ActionNothing int = 1
	ActionRight   int = 2

	// NumActions is the size of the environment's action set
	NumActions int = 3

	// Features is the size of a state observation: the cart's x
	// position and speed, and the pole's angle from the positive
	// y-axis and angular velocity
	Features int = 4
)

// Cartpole implements the classic control environment Cartpole. A pole
// is attached to a cart which moves horizontally; the agent pushes the
// cart to keep the pole upright for as long as possible, earning a
// reward of 1 on every step until the pole falls, the cart leaves the
// track, or the step limit is reached.
//
// Actions are discrete and consist of the force applied to the cart:
//
//	Action	Meaning
//	  0		Accelerate left
//	  1		Do nothing
//	  2		Accelerate right
type Cartpole struct {
	x, xDot         float64
	theta, thetaDot float64

	steps     int
	stepLimit int
	done      bool

	rng *rand.Rand
}

// New returns a new Cartpole whose episodes end after stepLimit steps.
// The seed determines the starting states drawn by Reset.
func New(stepLimit int, seed uint64) *Cartpole {
	return &Cartpole{
		stepLimit: stepLimit,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Reset starts a new episode and returns its starting state, drawn
// uniformly from a small region around the unstable equilibrium.
func (c *Cartpole) Reset() []float64 {
	c.x = c.uniform()
	c.xDot = c.uniform()
	c.theta = c.uniform()
	c.thetaDot = c.uniform()
	c.steps = 0
	c.done = false

	return c.state()
}

// Step applies one action to the environment and returns the next
// state, the reward for the transition, and whether the episode ended.
func (c *Cartpole) Step(action int) ([]float64, float64, bool, error) {
	if action < ActionLeft || action > ActionRight {
		return nil, 0, false, fmt.Errorf("step: illegal action %v ∉ "+
			"(0, 1, 2)", action)
	}
	if c.done {
		return nil, 0, false, fmt.Errorf("step: episode has ended, " +
			"call Reset")
	}

	// Magnify the action force in the appropriate direction
	var force float64
	switch action {
	case ActionLeft:
		force = -ForceMag
	case ActionRight:
		force = ForceMag
	}

	// Calculate physical variables to determine the next state
	cosTheta := math.Cos(c.theta)
	sinTheta := math.Sin(c.theta)

	totalMass := PoleMass + CartMass
	poleMassLength := PoleMass * HalfPoleLength

	temp := (force + poleMassLength*c.thetaDot*c.thetaDot*sinTheta) /
		totalMass
	thetaAcc := (Gravity*sinTheta - cosTheta*temp) / (HalfPoleLength *
		(4.0/3.0 - PoleMass*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	// Update state variables using Euler kinematic integration
	c.x += Dt * c.xDot
	c.xDot += Dt * xAcc
	c.theta += Dt * c.thetaDot
	c.thetaDot += Dt * thetaAcc

	c.steps++
	failed := math.Abs(c.x) > PositionBounds ||
		math.Abs(c.theta) > AngleBounds
	c.done = failed || c.steps >= c.stepLimit

	return c.state(), 1.0, c.done, nil
}

// state returns a copy of the current state observation
func (c *Cartpole) state() []float64 {
	return []float64{c.x, c.xDot, c.theta, c.thetaDot}
}

// uniform draws a starting-state feature
func (c *Cartpole) uniform() float64 {
	value := startBounds * (2.0*c.rng.Float64() - 1.0)
	return floatutils.Clip(value, -startBounds, startBounds)
}
