package initwfn

import G "gorgonia.org/gorgonia"

// ZeroesConfig describes all-zero weight initialization.
type ZeroesConfig struct{}

// NewZeroes returns a new all-zero weight initializer
func NewZeroes() *InitWFn {
	return newInitWFn(ZeroesConfig{})
}

// Type returns the type of initialization algorithm described by the
// configuration.
func (z ZeroesConfig) Type() Type {
	return Zeroes
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (z ZeroesConfig) Create() G.InitWFn {
	return G.Zeroes()
}
