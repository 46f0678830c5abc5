package model

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/timewinder-dev/circus/cas"
	"golang.org/x/sync/errgroup"
)

// ErrExpectationMismatch is returned by CheckExpectations.
var ErrExpectationMismatch = errors.New("expectation mismatch")

// Pass is one simulation run from the initial configuration: a policy
// applied for a fixed number of rounds.
type Pass struct {
	Name   string
	Policy string
	Rounds int
}

// An Executor is the context and entrypoint for running a scenario. Every
// pass runs on its own clone of Initial, so passes never observe each other.
type Executor struct {
	RunID       uuid.UUID
	Initial     *Circus
	Passes      []Pass
	Properties  []Property
	Expect      map[string]ExpectSpec
	NewStore    cas.Factory
	DebugWriter io.Writer
	Reporter    Reporter

	CheckpointEvery int
	ProgressEvery   int
	KeepGoing       bool
	ShowDetails     bool
	Parallel        bool
}

type TraceStep struct {
	Round     int
	StateHash cas.Hash
}

type PassResult struct {
	Pass       Pass
	Policy     string
	Statistics Statistics
	Violations []PropertyViolation
	Trace      []TraceStep
	Recurrence *Recurrence
	Success    bool
	CAS        cas.CAS
}

type ModelResult struct {
	RunID   uuid.UUID
	Passes  []*PassResult
	Success bool
}

// Pass returns the result for the named pass, or nil.
func (r *ModelResult) Pass(name string) *PassResult {
	for _, p := range r.Passes {
		if p.Pass.Name == name {
			return p
		}
	}
	return nil
}

// RunModel runs every pass and returns their results in declaration order.
// Passes share nothing mutable, so with Parallel set they run concurrently.
func (e *Executor) RunModel() (*ModelResult, error) {
	results := make([]*PassResult, len(e.Passes))
	var g errgroup.Group
	if !e.Parallel {
		g.SetLimit(1)
	}
	for i, p := range e.Passes {
		g.Go(func() error {
			r, err := e.RunPass(p)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := &ModelResult{RunID: e.RunID, Passes: results, Success: true}
	for _, r := range results {
		out.Success = out.Success && r.Success
	}
	return out, nil
}

type passRun struct {
	e       *Executor
	pass    Pass
	circus  *Circus
	policy  Policy
	store   cas.CAS
	initial int
	samples map[cas.Hash]*Snapshot
	result  *PassResult
}

// RunPass clones the initial circus and runs a single pass over it.
func (e *Executor) RunPass(p Pass) (*PassResult, error) {
	c := e.Initial.Clone()
	policy, err := PolicyByName(p.Policy, c)
	if err != nil {
		return nil, err
	}
	newStore := e.NewStore
	if newStore == nil {
		newStore = cas.NewDefault
	}
	run := &passRun{
		e:       e,
		pass:    p,
		circus:  c,
		policy:  policy,
		store:   newStore(),
		initial: c.ItemCount(),
		samples: make(map[cas.Hash]*Snapshot),
		result: &PassResult{
			Pass:   p,
			Policy: describePolicy(policy),
		},
	}
	run.result.CAS = run.store

	log.Debug().
		Str("run", e.RunID.String()).
		Str("pass", p.Name).
		Str("policy", run.result.Policy).
		Int("rounds", p.Rounds).
		Msg("starting pass")

	stopped, err := run.loop()
	if err != nil {
		return nil, fmt.Errorf("pass %s: %w", p.Name, err)
	}

	r := run.result
	r.Statistics = computeStatistics(c)
	r.Statistics.UniqueLayouts = run.store.LayoutCount()
	r.Statistics.RepeatedLayouts = c.Round() + 1 - r.Statistics.UniqueLayouts
	r.Statistics.ViolationCount = len(r.Violations)
	if r.Recurrence != nil {
		r.Statistics.RecurrenceRound = r.Recurrence.Round
		r.Statistics.RecurrencePeriod = r.Recurrence.Period
	}
	r.Success = len(r.Violations) == 0

	log.Debug().
		Str("run", e.RunID.String()).
		Str("pass", p.Name).
		Uint64("activity", r.Statistics.ActivityLevel).
		Bool("stopped", stopped).
		Msg("finished pass")
	return r, nil
}

// loop drives the rounds. It reports stopped=true when a property violation
// ended the pass early.
func (r *passRun) loop() (stopped bool, err error) {
	w := r.e.debugWriter()
	every := r.checkpointInterval()

	prev := TakeSnapshot(r.circus)
	if err := r.observe(prev, true); err != nil {
		return false, err
	}

	for i := 0; i < r.pass.Rounds; i++ {
		if err := r.circus.RunRound(r.policy); err != nil {
			return false, err
		}
		cur := TakeSnapshot(r.circus)
		fmt.Fprintf(w, "[%s] round %d: inspections=%v items=%d\n",
			r.pass.Name, cur.Round, cur.Inspections, cur.ItemCount())

		last := i == r.pass.Rounds-1
		if err := r.observe(cur, last || cur.Round%every == 0); err != nil {
			return false, err
		}

		if v := r.check(prev, cur); v != nil {
			r.result.Violations = append(r.result.Violations, *v)
			if !r.e.KeepGoing {
				return true, nil
			}
			log.Warn().Str("pass", r.pass.Name).Int("round", cur.Round).Msg(v.Message)
		} else {
			fmt.Fprintf(w, "✓ All properties satisfied\n")
		}

		if n := r.e.ProgressEvery; n > 0 && cur.Round%n == 0 {
			r.e.reporter().Printf("[%s] %d/%d rounds, activity %d\n",
				r.pass.Name, cur.Round, r.pass.Rounds, ActivityLevel(cur.Inspections))
		}
		prev = cur
	}
	return false, nil
}

// observe records the layout for recurrence detection and, at checkpoints,
// stores the snapshot and extends the trace.
func (r *passRun) observe(s *Snapshot, checkpoint bool) error {
	rec, found, err := DetectRecurrence(r.store, s)
	if err != nil {
		return fmt.Errorf("hashing layout: %w", err)
	}
	switch {
	case found && r.result.Recurrence == nil:
		r.result.Recurrence = &rec
		w := r.e.debugWriter()
		fmt.Fprintf(w, "\n⚠ Queue layout recurred\n")
		fmt.Fprintf(w, "  Layout hash: %x\n", rec.Layout)
		fmt.Fprintf(w, "  Seen at rounds: %d and %d (period %d)\n", rec.Round-rec.Period, rec.Round, rec.Period)
		if sample, ok := r.samples[rec.Layout]; ok {
			fmt.Fprintf(w, "\n  Inspections gained per period:\n")
			ShowInspectionDifferences(w, sample, s)
		}
		r.samples = nil
	case !found && r.samples != nil:
		layout, err := s.LayoutHash()
		if err != nil {
			return fmt.Errorf("hashing layout: %w", err)
		}
		r.samples[layout] = s
	}
	if !checkpoint {
		return nil
	}
	h, err := r.store.Put(s)
	if err != nil {
		return fmt.Errorf("storing snapshot: %w", err)
	}
	r.result.Trace = append(r.result.Trace, TraceStep{Round: s.Round, StateHash: h})
	return nil
}

func (r *passRun) check(prev, cur *Snapshot) *PropertyViolation {
	if len(r.e.Properties) == 0 {
		return nil
	}
	st := &RoundState{
		Current:      cur,
		Previous:     prev,
		Divisors:     r.circus.Divisors(),
		Modulus:      r.circus.Modulus(),
		InitialItems: r.initial,
	}
	name := "Property"
	result, err := CheckProperties(st, r.e.Properties)
	var msg string
	switch {
	case err != nil:
		msg = err.Error()
	case result != nil:
		name = result.Name
		msg = result.Message
	default:
		return nil
	}
	h, hashErr := r.store.Put(cur)
	if hashErr != nil {
		h = 0
	}
	return &PropertyViolation{
		PropertyName: name,
		Message:      msg,
		Pass:         r.pass.Name,
		Round:        cur.Round,
		StateHash:    h,
		Trace:        slices.Clone(r.result.Trace),
		Snapshot:     cur,
		ShowDetails:  r.e.ShowDetails,
		CAS:          r.store,
	}
}

func (r *passRun) checkpointInterval() int {
	if r.e.CheckpointEvery > 0 {
		return r.e.CheckpointEvery
	}
	return max(1, r.pass.Rounds/20)
}

func (e *Executor) debugWriter() io.Writer {
	if e.DebugWriter == nil {
		return io.Discard
	}
	return e.DebugWriter
}

func (e *Executor) reporter() Reporter {
	if e.Reporter == nil {
		return &SilentReporter{}
	}
	return e.Reporter
}

// CheckExpectations compares each pass result against the scenario's
// [expect.<pass>] tables.
func (e *Executor) CheckExpectations(res *ModelResult) error {
	var errs []error
	names := make([]string, 0, len(e.Expect))
	for name := range e.Expect {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		want := e.Expect[name]
		got := res.Pass(name)
		if got == nil {
			errs = append(errs, fmt.Errorf("%w: no pass named %q", ErrExpectationMismatch, name))
			continue
		}
		if want.Activity != 0 && got.Statistics.ActivityLevel != want.Activity {
			errs = append(errs, fmt.Errorf("%w: pass %s: activity level %d, want %d",
				ErrExpectationMismatch, name, got.Statistics.ActivityLevel, want.Activity))
		}
		if len(want.Inspections) > 0 && !slices.Equal(got.Statistics.Inspections, want.Inspections) {
			errs = append(errs, fmt.Errorf("%w: pass %s: inspections %v, want %v",
				ErrExpectationMismatch, name, got.Statistics.Inspections, want.Inspections))
		}
	}
	return errors.Join(errs...)
}
