// Package circus renders simulation results for machine consumption.
package circus

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/timewinder-dev/circus/model"
	"gopkg.in/yaml.v3"
)

type Summary struct {
	RunID   string        `yaml:"run_id" json:"run_id"`
	Success bool          `yaml:"success" json:"success"`
	Passes  []PassSummary `yaml:"passes" json:"passes"`
}

type PassSummary struct {
	Name          string             `yaml:"name" json:"name"`
	Policy        string             `yaml:"policy" json:"policy"`
	Rounds        int                `yaml:"rounds" json:"rounds"`
	Modulus       uint64             `yaml:"modulus" json:"modulus"`
	Activity      uint64             `yaml:"activity" json:"activity"`
	Inspections   []uint64           `yaml:"inspections,flow" json:"inspections"`
	ItemsInFlight int                `yaml:"items_in_flight" json:"items_in_flight"`
	Violations    []string           `yaml:"violations,omitempty" json:"violations,omitempty"`
	Recurrence    *RecurrenceSummary `yaml:"recurrence,omitempty" json:"recurrence,omitempty"`
}

type RecurrenceSummary struct {
	Round  int `yaml:"round" json:"round"`
	Period int `yaml:"period" json:"period"`
}

func Summarize(r *model.ModelResult) *Summary {
	out := &Summary{
		RunID:   r.RunID.String(),
		Success: r.Success,
	}
	for _, p := range r.Passes {
		ps := PassSummary{
			Name:          p.Pass.Name,
			Policy:        p.Policy,
			Rounds:        p.Statistics.Rounds,
			Modulus:       p.Statistics.Modulus,
			Activity:      p.Statistics.ActivityLevel,
			Inspections:   p.Statistics.Inspections,
			ItemsInFlight: p.Statistics.ItemsInFlight,
		}
		for _, v := range p.Violations {
			ps.Violations = append(ps.Violations, v.Message)
		}
		if p.Recurrence != nil {
			ps.Recurrence = &RecurrenceSummary{Round: p.Recurrence.Round, Period: p.Recurrence.Period}
		}
		out.Passes = append(out.Passes, ps)
	}
	return out
}

// Encode writes the summary as "json" or "yaml".
func (s *Summary) Encode(w io.Writer, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}
