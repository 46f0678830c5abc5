package model

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// RoundState is what a property sees after each round.
type RoundState struct {
	Current      *Snapshot
	Previous     *Snapshot
	Divisors     []uint64
	Modulus      uint64
	InitialItems int
}

type PropertyResult struct {
	Success bool
	Message string
	Name    string
}

type Property interface {
	Check(st *RoundState) (PropertyResult, error)
	PropertyName() string
}

func satisfied(name string) PropertyResult {
	return PropertyResult{
		Success: true,
		Name:    name,
		Message: fmt.Sprintf("Property %s satisfied", name),
	}
}

func violated(name, format string, args ...interface{}) PropertyResult {
	return PropertyResult{
		Success: false,
		Name:    name,
		Message: fmt.Sprintf("Property %s violated: %s", name, fmt.Sprintf(format, args...)),
	}
}

// ItemsConserved checks that routing neither drops nor duplicates items.
type ItemsConserved struct{}

func (ItemsConserved) PropertyName() string { return "items_conserved" }

func (p ItemsConserved) Check(st *RoundState) (PropertyResult, error) {
	if n := st.Current.ItemCount(); n != st.InitialItems {
		return violated(p.PropertyName(), "%d items in flight, started with %d", n, st.InitialItems), nil
	}
	return satisfied(p.PropertyName()), nil
}

// InspectionsMonotonic checks that no counter went backwards. Worker 0 moves
// first in every round, so its counter must grow by exactly the number of
// items it held when the round began.
type InspectionsMonotonic struct{}

func (InspectionsMonotonic) PropertyName() string { return "inspections_monotonic" }

func (p InspectionsMonotonic) Check(st *RoundState) (PropertyResult, error) {
	if st.Previous == nil {
		return satisfied(p.PropertyName()), nil
	}
	for i, n := range st.Current.Inspections {
		if n < st.Previous.Inspections[i] {
			return violated(p.PropertyName(), "worker %d went from %d to %d inspections",
				i, st.Previous.Inspections[i], n), nil
		}
	}
	if len(st.Current.Inspections) > 0 {
		delta := st.Current.Inspections[0] - st.Previous.Inspections[0]
		if held := uint64(len(st.Previous.Queues[0])); delta != held {
			return violated(p.PropertyName(), "worker 0 inspected %d items but held %d at round start",
				delta, held), nil
		}
	}
	return satisfied(p.PropertyName()), nil
}

// StarlarkProperty evaluates a boolean Starlark expression after every round.
// The expression sees round, queues, inspections, prev_inspections, divisors,
// modulus and initial_items.
// Only the source is kept: evaluation resolves the parsed expression in
// place, so each Check parses its own copy.
type StarlarkProperty struct {
	Name string
	src  string
}

var starlarkOptions = &syntax.FileOptions{}

func NewStarlarkProperty(name, expr string) (*StarlarkProperty, error) {
	if _, err := starlarkOptions.ParseExpr(name, expr, 0); err != nil {
		return nil, configErr(-1, "properties."+name, "%s", err)
	}
	return &StarlarkProperty{Name: name, src: expr}, nil
}

func (sp *StarlarkProperty) PropertyName() string { return sp.Name }

func (sp *StarlarkProperty) Check(st *RoundState) (PropertyResult, error) {
	expr, err := starlarkOptions.ParseExpr(sp.Name, sp.src, 0)
	if err != nil {
		return PropertyResult{}, fmt.Errorf("Property %s: %w", sp.Name, err)
	}
	thread := &starlark.Thread{Name: sp.Name}
	val, err := starlark.EvalExprOptions(starlarkOptions, thread, expr, st.globals())
	if err != nil {
		return PropertyResult{}, fmt.Errorf("Property %s: %w", sp.Name, err)
	}
	if val == starlark.None {
		return PropertyResult{}, fmt.Errorf("Property %s: check is returning None", sp.Name)
	}
	if val.Truth() {
		return satisfied(sp.Name), nil
	}
	return violated(sp.Name, "%s returned false", sp.src), nil
}

func (st *RoundState) globals() starlark.StringDict {
	queues := make([]starlark.Value, len(st.Current.Queues))
	for i, q := range st.Current.Queues {
		queues[i] = uintList(q)
	}
	prev := st.Current.Inspections
	if st.Previous != nil {
		prev = st.Previous.Inspections
	}
	g := starlark.StringDict{
		"round":            starlark.MakeInt(st.Current.Round),
		"queues":           starlark.NewList(queues),
		"inspections":      uintList(st.Current.Inspections),
		"prev_inspections": uintList(prev),
		"divisors":         uintList(st.Divisors),
		"modulus":          starlark.MakeUint64(st.Modulus),
		"initial_items":    starlark.MakeInt(st.InitialItems),
	}
	g.Freeze()
	return g
}

func uintList(vs []uint64) *starlark.List {
	out := make([]starlark.Value, len(vs))
	for i, v := range vs {
		out[i] = starlark.MakeUint64(v)
	}
	return starlark.NewList(out)
}

// CheckProperties returns an error describing the first violated property.
func CheckProperties(st *RoundState, props []Property) (*PropertyResult, error) {
	for _, prop := range props {
		result, err := prop.Check(st)
		if err != nil {
			return nil, err
		}
		if !result.Success {
			return &result, nil
		}
	}
	return nil, nil
}
