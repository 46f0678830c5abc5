package model

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/timewinder-dev/circus/cas"
)

const (
	heavyRule = "================================================================================"
	lightRule = "--------------------------------------------------------------------------------"
)

// PropertyViolation records a property that failed after some round.
type PropertyViolation struct {
	PropertyName string
	Message      string
	Pass         string
	Round        int
	StateHash    cas.Hash
	Trace        []TraceStep
	Snapshot     *Snapshot
	ShowDetails  bool
	CAS          cas.CAS
}

// PrettyPrintTo writes one line per worker queue.
func (s *Snapshot) PrettyPrintTo(w io.Writer) {
	for i, q := range s.Queues {
		var inspected uint64
		if i < len(s.Inspections) {
			inspected = s.Inspections[i]
		}
		fmt.Fprintf(w, "Worker %d (inspected %d): %v\n", i, inspected, q)
	}
}

func (s *Snapshot) PrettyPrint() string {
	var b strings.Builder
	s.PrettyPrintTo(&b)
	return b.String()
}

func section(b *strings.Builder, title string) {
	b.WriteString(color.Gray.Sprint(lightRule))
	b.WriteString("\n")
	b.WriteString(color.Cyan.Sprint(title))
	b.WriteString("\n")
	b.WriteString(color.Gray.Sprint(lightRule))
	b.WriteString("\n")
}

// FormatPropertyViolation formats a single property violation for display
func FormatPropertyViolation(v PropertyViolation) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(color.Gray.Sprint(heavyRule))
	b.WriteString("\n")
	b.WriteString(color.Red.Sprint("PROPERTY VIOLATION"))
	b.WriteString("\n")
	b.WriteString(color.Gray.Sprint(heavyRule))
	b.WriteString("\n")
	b.WriteString(color.Bold.Sprint("Property: "))
	b.WriteString(color.Yellow.Sprintf("%s\n", v.PropertyName))
	b.WriteString(color.Bold.Sprint("Pass:     "))
	b.WriteString(fmt.Sprintf("%s\n", v.Pass))
	b.WriteString(color.Bold.Sprint("Message:  "))
	b.WriteString(color.Red.Sprintf("%s\n", v.Message))
	b.WriteString(color.Bold.Sprint("Round:    "))
	b.WriteString(fmt.Sprintf("%d\n", v.Round))
	b.WriteString(color.Bold.Sprint("Hash:     "))
	b.WriteString(fmt.Sprintf("0x%x\n", v.StateHash))
	b.WriteString("\n")

	section(&b, "Checkpoints:")
	if len(v.Trace) == 0 {
		b.WriteString("  (no checkpoints recorded)\n")
	} else if v.ShowDetails && v.CAS != nil {
		reconstructTrace(&b, v.CAS, v.Trace)
	} else {
		for i, step := range v.Trace {
			b.WriteString(fmt.Sprintf("  %2d. Round %d → State 0x%x\n", i+1, step.Round, step.StateHash))
		}
	}

	if v.Snapshot != nil {
		b.WriteString("\n")
		section(&b, "Final State:")
		v.Snapshot.PrettyPrintTo(&indentWriter{w: &b, indent: "  ", atLineStart: true})
	}

	b.WriteString(color.Gray.Sprint(heavyRule))
	b.WriteString("\n")
	return b.String()
}

// reconstructTrace loads every checkpoint snapshot from the store, writing
// directly to w
func reconstructTrace(w io.Writer, store cas.CAS, trace []TraceStep) {
	for i, step := range trace {
		s, err := cas.Retrieve[Snapshot](store, step.StateHash)
		if err != nil {
			fmt.Fprintf(w, "\n  Step %d: Round %d → State 0x%x (unavailable)\n", i+1, step.Round, step.StateHash)
			continue
		}
		fmt.Fprintf(w, "\n  Step %d:\n", i+1)
		fmt.Fprintf(w, "  ├─ Round: %d\n", s.Round)
		fmt.Fprintf(w, "  ├─ Items: %d\n", s.ItemCount())
		fmt.Fprintf(w, "  ├─ Activity: %d\n", ActivityLevel(s.Inspections))
		fmt.Fprint(w, "  └─ Queues:\n")
		s.PrettyPrintTo(&indentWriter{w: w, indent: "     ", atLineStart: true})
	}
}

// FormatTrace renders a pass's checkpoint trace, with full queues when
// details is set.
func FormatTrace(r *PassResult, details bool) string {
	var b strings.Builder
	b.WriteString("\n")
	section(&b, fmt.Sprintf("Checkpoints for pass %s:", r.Pass.Name))
	if details && r.CAS != nil {
		reconstructTrace(&b, r.CAS, r.Trace)
	} else {
		for i, step := range r.Trace {
			b.WriteString(fmt.Sprintf("  %2d. Round %d → State 0x%x\n", i+1, step.Round, step.StateHash))
		}
	}
	return b.String()
}

// indentWriter wraps an io.Writer to add indentation to each line
type indentWriter struct {
	w           io.Writer
	indent      string
	atLineStart bool
}

func (iw *indentWriter) Write(p []byte) (n int, err error) {
	totalWritten := 0

	for len(p) > 0 {
		if iw.atLineStart {
			if _, err := io.WriteString(iw.w, iw.indent); err != nil {
				return totalWritten, err
			}
			iw.atLineStart = false
		}

		idx := 0
		for idx < len(p) && p[idx] != '\n' {
			idx++
		}
		if idx < len(p) {
			idx++ // Include '\n'
			iw.atLineStart = true
		}

		written, err := iw.w.Write(p[:idx])
		totalWritten += written
		if err != nil {
			return totalWritten, err
		}
		p = p[idx:]
	}

	return totalWritten, nil
}

// FormatAllViolations formats all property violations for display
func FormatAllViolations(violations []PropertyViolation) string {
	if len(violations) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(color.Gray.Sprint(heavyRule))
	b.WriteString("\n")
	b.WriteString(color.Red.Sprintf("PROPERTY VIOLATIONS FOUND: %d\n", len(violations)))
	b.WriteString(color.Gray.Sprint(heavyRule))
	b.WriteString("\n")

	for i, v := range violations {
		b.WriteString(color.Yellow.Sprintf("\nViolation #%d:\n", i+1))
		b.WriteString(FormatPropertyViolation(v))
	}

	return b.String()
}

// FormatStatistics formats the statistics of a single pass
func FormatStatistics(name, policy string, stats Statistics) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(color.Cyan.Sprintf("=== Pass %s: %s ===", name, policy))
	b.WriteString("\n")
	b.WriteString(color.Bold.Sprint("Rounds run: "))
	b.WriteString(fmt.Sprintf("%d\n", stats.Rounds))
	b.WriteString(color.Bold.Sprint("Modulus: "))
	b.WriteString(fmt.Sprintf("%d\n", stats.Modulus))
	b.WriteString(color.Bold.Sprint("Items in flight: "))
	b.WriteString(fmt.Sprintf("%d\n", stats.ItemsInFlight))
	b.WriteString(color.Bold.Sprint("Inspections per worker: "))
	b.WriteString(fmt.Sprintf("%v\n", stats.Inspections))
	b.WriteString(color.Bold.Sprint("Total inspections: "))
	b.WriteString(fmt.Sprintf("%d\n", stats.TotalInspections))
	b.WriteString(color.Bold.Sprint("Unique queue layouts: "))
	b.WriteString(fmt.Sprintf("%d\n", stats.UniqueLayouts))

	b.WriteString(color.Bold.Sprint("Layout recurrence: "))
	if stats.RecurrencePeriod > 0 {
		b.WriteString(color.Yellow.Sprintf("round %d, period %d\n", stats.RecurrenceRound, stats.RecurrencePeriod))
	} else {
		b.WriteString("none\n")
	}

	b.WriteString(color.Bold.Sprint("Property violations found: "))
	if stats.ViolationCount > 0 {
		b.WriteString(color.Red.Sprintf("%d\n", stats.ViolationCount))
	} else {
		b.WriteString(color.Green.Sprintf("%d\n", stats.ViolationCount))
	}

	b.WriteString(color.Bold.Sprint("Activity level: "))
	b.WriteString(color.Green.Sprintf("%d\n", stats.ActivityLevel))
	return b.String()
}
