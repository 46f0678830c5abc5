package model

import (
	"fmt"
	"math/bits"
)

// ModulusStrategy chooses how the stressed policy's modulus is derived from
// the divisors.
type ModulusStrategy int

const (
	// ModulusProduct multiplies every divisor together.
	ModulusProduct ModulusStrategy = iota
	// ModulusLCM takes the least common multiple, which equals the product
	// when the divisors are pairwise coprime.
	ModulusLCM
)

func (m ModulusStrategy) String() string {
	if m == ModulusLCM {
		return "lcm"
	}
	return "product"
}

func ParseModulusStrategy(s string) (ModulusStrategy, error) {
	switch s {
	case "", "product":
		return ModulusProduct, nil
	case "lcm":
		return ModulusLCM, nil
	}
	return 0, configErr(-1, "modulus", "unknown strategy %q", s)
}

type Option func(*Circus)

func WithModulusStrategy(m ModulusStrategy) Option {
	return func(c *Circus) {
		c.strategy = m
	}
}

// Circus owns an ordered, fixed set of workers and drives rounds over them.
// Workers are addressed only by index.
type Circus struct {
	workers  []*Worker
	modulus  uint64
	strategy ModulusStrategy
	round    int
}

// NewCircus takes ownership of workers, checks every routing target and
// derives the modulus once.
func NewCircus(workers []*Worker, opts ...Option) (*Circus, error) {
	c := &Circus{workers: workers}
	for _, o := range opts {
		o(c)
	}
	if len(workers) == 0 {
		return nil, configErr(-1, "workers", "at least one worker is required")
	}
	for i, w := range workers {
		if w == nil {
			return nil, configErr(i, "worker", "is nil")
		}
		if w.Divisor == 0 {
			return nil, configErr(i, "divisor", "must be positive")
		}
		if err := w.Op.validate(); err != nil {
			return nil, configErr(i, "op", "%s", err)
		}
		if w.IfTrue < 0 || w.IfTrue >= len(workers) {
			return nil, configErr(i, "if_true", "target %d out of range [0, %d)", w.IfTrue, len(workers))
		}
		if w.IfFalse < 0 || w.IfFalse >= len(workers) {
			return nil, configErr(i, "if_false", "target %d out of range [0, %d)", w.IfFalse, len(workers))
		}
	}
	m, err := deriveModulus(workers, c.strategy)
	if err != nil {
		return nil, err
	}
	c.modulus = m
	return c, nil
}

func deriveModulus(workers []*Worker, strategy ModulusStrategy) (uint64, error) {
	m := uint64(1)
	for i, w := range workers {
		d := w.Divisor
		if strategy == ModulusLCM {
			d /= gcd(m, d)
		}
		hi, lo := bits.Mul64(m, d)
		if hi != 0 {
			return 0, configErr(i, "divisor", "modulus overflows 64 bits")
		}
		m = lo
	}
	return m, nil
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// RunRound gives every worker one turn in ascending index order. Items routed
// forward are seen by their target later in the same round; items routed
// backward wait for the next one.
func (c *Circus) RunRound(p Policy) error {
	for i, w := range c.workers {
		onTrue, onFalse, err := w.DrainTurn(p)
		c.workers[w.IfTrue].Receive(onTrue)
		c.workers[w.IfFalse].Receive(onFalse)
		if err != nil {
			return fmt.Errorf("round %d, worker %d: %w", c.round+1, i, err)
		}
	}
	c.round++
	return nil
}

// Run calls RunRound exactly rounds times.
func (c *Circus) Run(rounds int, p Policy) error {
	for r := 0; r < rounds; r++ {
		if err := c.RunRound(p); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an independent deep copy, including counters and the round
// number.
func (c *Circus) Clone() *Circus {
	n := &Circus{
		workers:  make([]*Worker, len(c.workers)),
		modulus:  c.modulus,
		strategy: c.strategy,
		round:    c.round,
	}
	for i, w := range c.workers {
		n.workers[i] = w.Clone()
	}
	return n
}

func (c *Circus) Modulus() uint64                  { return c.modulus }
func (c *Circus) ModulusStrategy() ModulusStrategy { return c.strategy }
func (c *Circus) Len() int                         { return len(c.workers) }
func (c *Circus) Round() int                       { return c.round }

// Worker returns a copy of the worker at idx. Changes to it do not reach
// the circus.
func (c *Circus) Worker(idx int) *Worker {
	return c.workers[idx].Clone()
}

func (c *Circus) Inspections() []uint64 {
	out := make([]uint64, len(c.workers))
	for i, w := range c.workers {
		out[i] = w.Inspections
	}
	return out
}

func (c *Circus) Divisors() []uint64 {
	out := make([]uint64, len(c.workers))
	for i, w := range c.workers {
		out[i] = w.Divisor
	}
	return out
}

// Queues returns a copy of every worker's queue.
func (c *Circus) Queues() [][]uint64 {
	out := make([][]uint64, len(c.workers))
	for i, w := range c.workers {
		out[i] = append([]uint64(nil), w.Items...)
	}
	return out
}

// ItemCount is the number of items held across all queues.
func (c *Circus) ItemCount() int {
	n := 0
	for _, w := range c.workers {
		n += len(w.Items)
	}
	return n
}
