package model

import "fmt"

// Policy bounds an item's value after its transform and before it is
// classified. A policy must never change the outcome of any worker's
// divisibility test relative to the values the simulation is defined over.
type Policy interface {
	Reduce(v uint64) uint64
	Name() string
}

// Calm divides by three, rounding down.
type Calm struct{}

func (Calm) Reduce(v uint64) uint64 { return v / 3 }
func (Calm) Name() string           { return "calm" }

// Stressed keeps values below Modulus. Every divisor in the circus divides
// Modulus, so v % Modulus and v agree on every classification.
type Stressed struct {
	Modulus uint64
}

func NewStressed(c *Circus) Stressed {
	return Stressed{Modulus: c.Modulus()}
}

func (s Stressed) Reduce(v uint64) uint64 { return v % s.Modulus }
func (s Stressed) Name() string           { return "stressed" }

// PolicyByName resolves the policy names accepted in scenario files.
func PolicyByName(name string, c *Circus) (Policy, error) {
	switch name {
	case "calm":
		return Calm{}, nil
	case "stressed":
		return NewStressed(c), nil
	}
	return nil, configErr(-1, "policy", "unknown policy %q", name)
}

func describePolicy(p Policy) string {
	if s, ok := p.(Stressed); ok {
		return fmt.Sprintf("%s (mod %d)", s.Name(), s.Modulus)
	}
	return p.Name()
}
