package model

import (
	"fmt"
	"slices"
)

// WorkerConfig is the already-parsed description of a single worker.
type WorkerConfig struct {
	Items   []uint64
	Op      Transform
	Divisor uint64
	IfTrue  int
	IfFalse int
}

// Worker holds a FIFO queue of items and the rule deciding where each item
// goes after inspection. Only the owning Circus mutates it.
type Worker struct {
	Items       []uint64
	Op          Transform
	Divisor     uint64
	IfTrue      int
	IfFalse     int
	Inspections uint64
}

// NewWorker validates cfg and returns a worker owning a copy of its items.
// Target indices are checked later by NewCircus, which knows the worker count.
func NewWorker(idx int, cfg WorkerConfig) (*Worker, error) {
	if cfg.Divisor == 0 {
		return nil, configErr(idx, "divisor", "must be positive")
	}
	if err := cfg.Op.validate(); err != nil {
		return nil, configErr(idx, "op", "%s", err)
	}
	return &Worker{
		Items:   slices.Clone(cfg.Items),
		Op:      cfg.Op,
		Divisor: cfg.Divisor,
		IfTrue:  cfg.IfTrue,
		IfFalse: cfg.IfFalse,
	}, nil
}

// Classify reports whether v is divisible by the worker's divisor.
func (w *Worker) Classify(v uint64) bool {
	return v%w.Divisor == 0
}

// DrainTurn inspects every item queued when the call starts, in order, and
// splits the reduced values into the lists bound for IfTrue and IfFalse.
// The queue is empty afterwards. On overflow the failing item and those after
// it are left queued, uncounted, and the error is returned.
func (w *Worker) DrainTurn(p Policy) (onTrue, onFalse []uint64, err error) {
	items := w.Items
	w.Items = nil
	for i, item := range items {
		v, err := w.Op.ApplyChecked(item)
		if err != nil {
			w.Items = items[i:]
			return onTrue, onFalse, err
		}
		w.Inspections++
		v = p.Reduce(v)
		if w.Classify(v) {
			onTrue = append(onTrue, v)
		} else {
			onFalse = append(onFalse, v)
		}
	}
	return onTrue, onFalse, nil
}

// Receive appends items at the tail of the queue.
func (w *Worker) Receive(items []uint64) {
	w.Items = append(w.Items, items...)
}

func (w *Worker) Clone() *Worker {
	n := *w
	n.Items = slices.Clone(w.Items)
	return &n
}

func (w *Worker) String() string {
	return fmt.Sprintf("items=%v op=%q divisor=%d true->%d false->%d inspected=%d",
		w.Items, w.Op.String(), w.Divisor, w.IfTrue, w.IfFalse, w.Inspections)
}
