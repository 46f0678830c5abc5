package model

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/timewinder-dev/circus/cas"
)

// Spec is the TOML scenario file: the workers, the passes to run over them,
// the properties to hold after every round and, optionally, the expected
// results of each pass.
type Spec struct {
	Circus     CircusSpec              `toml:"circus"`
	Workers    []WorkerSpec            `toml:"worker"`
	Passes     []PassSpec              `toml:"pass,omitempty"`
	Properties map[string]PropertySpec `toml:"properties,omitempty"`
	Expect     map[string]ExpectSpec   `toml:"expect,omitempty"`
}

type CircusSpec struct {
	Modulus         string `toml:"modulus,omitempty"`
	CheckpointEvery int    `toml:"checkpoint_every,omitempty"`
	NoBuiltins      bool   `toml:"no_builtin_properties,omitempty"`
}

type WorkerSpec struct {
	Items   []int64 `toml:"items"`
	Op      string  `toml:"op"`
	Operand int64   `toml:"operand,omitempty"`
	Divisor int64   `toml:"divisor"`
	IfTrue  int     `toml:"if_true"`
	IfFalse int     `toml:"if_false"`
}

type PassSpec struct {
	Name   string `toml:"name,omitempty"`
	Policy string `toml:"policy"`
	Rounds int    `toml:"rounds"`
}

type PropertySpec struct {
	Always string `toml:"always"`
}

type ExpectSpec struct {
	Activity    uint64   `toml:"activity,omitempty"`
	Inspections []uint64 `toml:"inspections,omitempty"`
}

// DefaultPasses are run when a scenario declares none.
var DefaultPasses = []PassSpec{
	{Name: "calm", Policy: "calm", Rounds: 20},
	{Name: "stressed", Policy: "stressed", Rounds: 10000},
}

func ParseSpec(f io.Reader) (*Spec, error) {
	var out Spec
	if _, err := toml.NewDecoder(f).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return &out, nil
}

func LoadSpecFromFile(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSpec(f)
}

// WorkerConfigs converts the raw worker tables, rejecting values that cannot
// be represented.
func (s *Spec) WorkerConfigs() ([]WorkerConfig, error) {
	out := make([]WorkerConfig, len(s.Workers))
	for i, ws := range s.Workers {
		kind, err := ParseOpKind(ws.Op)
		if err != nil {
			return nil, configErr(i, "op", "%s", err)
		}
		if ws.Operand < 0 {
			return nil, configErr(i, "operand", "must not be negative")
		}
		if ws.Divisor <= 0 {
			return nil, configErr(i, "divisor", "must be positive, got %d", ws.Divisor)
		}
		items := make([]uint64, len(ws.Items))
		for j, it := range ws.Items {
			if it < 0 {
				return nil, configErr(i, "items", "item %d is negative", j)
			}
			items[j] = uint64(it)
		}
		out[i] = WorkerConfig{
			Items:   items,
			Op:      Transform{Kind: kind, Operand: uint64(ws.Operand)},
			Divisor: uint64(ws.Divisor),
			IfTrue:  ws.IfTrue,
			IfFalse: ws.IfFalse,
		}
	}
	return out, nil
}

// BuildCircus constructs the initial circus described by the scenario.
func (s *Spec) BuildCircus() (*Circus, error) {
	cfgs, err := s.WorkerConfigs()
	if err != nil {
		return nil, err
	}
	strategy, err := ParseModulusStrategy(s.Circus.Modulus)
	if err != nil {
		return nil, err
	}
	workers := make([]*Worker, len(cfgs))
	for i, cfg := range cfgs {
		w, err := NewWorker(i, cfg)
		if err != nil {
			return nil, err
		}
		workers[i] = w
	}
	return NewCircus(workers, WithModulusStrategy(strategy))
}

func (s *Spec) passes() ([]Pass, error) {
	specs := s.Passes
	if len(specs) == 0 {
		specs = DefaultPasses
	}
	seen := make(map[string]bool)
	out := make([]Pass, len(specs))
	for i, ps := range specs {
		name := ps.Name
		if name == "" {
			name = ps.Policy
		}
		if seen[name] {
			return nil, configErr(-1, "pass", "duplicate pass name %q", name)
		}
		seen[name] = true
		if ps.Rounds < 0 {
			return nil, configErr(-1, "pass."+name, "rounds must not be negative")
		}
		out[i] = Pass{Name: name, Policy: ps.Policy, Rounds: ps.Rounds}
	}
	return out, nil
}

func (s *Spec) properties() ([]Property, error) {
	var props []Property
	if !s.Circus.NoBuiltins {
		props = append(props, ItemsConserved{}, InspectionsMonotonic{})
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p, err := NewStarlarkProperty(name, s.Properties[name].Always)
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, nil
}

// BuildExecutor validates the whole scenario up front. newStore supplies a
// snapshot store per pass; nil selects cas.NewDefault.
func (s *Spec) BuildExecutor(newStore cas.Factory) (*Executor, error) {
	c, err := s.BuildCircus()
	if err != nil {
		return nil, err
	}
	passes, err := s.passes()
	if err != nil {
		return nil, err
	}
	for _, p := range passes {
		if _, err := PolicyByName(p.Policy, c); err != nil {
			return nil, err
		}
	}
	props, err := s.properties()
	if err != nil {
		return nil, err
	}
	if newStore == nil {
		newStore = cas.NewDefault
	}
	return &Executor{
		RunID:           uuid.New(),
		Initial:         c,
		Passes:          passes,
		Properties:      props,
		Expect:          s.Expect,
		NewStore:        newStore,
		CheckpointEvery: s.Circus.CheckpointEvery,
		DebugWriter:     io.Discard,
		Reporter:        &SilentReporter{},
	}, nil
}
