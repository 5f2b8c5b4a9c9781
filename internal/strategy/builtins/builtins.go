// Package builtins provides built-in factor strategies that ship with
// factorlab.
package builtins

import "factorlab/internal/strategy"

// Register adds every built-in strategy to r.
func Register(r *strategy.Registry) {
	r.Register(NewPBLow())
	r.Register(NewPELow())
}

// NewRegistry returns a registry holding the built-in strategies.
func NewRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	Register(r)
	return r
}
