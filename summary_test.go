package circus

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/circus/model"
	"gopkg.in/yaml.v3"
)

func sampleResult() *model.ModelResult {
	return &model.ModelResult{
		RunID:   uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Success: false,
		Passes: []*model.PassResult{
			{
				Pass:   model.Pass{Name: "calm", Policy: "calm", Rounds: 20},
				Policy: "calm",
				Statistics: model.Statistics{
					Rounds:        20,
					Modulus:       96577,
					ActivityLevel: 10605,
					Inspections:   []uint64{101, 95, 7, 105},
					ItemsInFlight: 10,
				},
				Violations: []model.PropertyViolation{{Message: "Property x violated"}},
				Recurrence: &model.Recurrence{Round: 8, Period: 3},
			},
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResult())

	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", s.RunID)
	require.Len(t, s.Passes, 1)
	p := s.Passes[0]
	assert.Equal(t, uint64(10605), p.Activity)
	assert.Equal(t, []string{"Property x violated"}, p.Violations)
	assert.Equal(t, &RecurrenceSummary{Round: 8, Period: 3}, p.Recurrence)
}

func TestSummary_EncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Summarize(sampleResult()).Encode(&buf, "yaml"))

	assert.Contains(t, buf.String(), "inspections: [101, 95, 7, 105]")

	var back map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, false, back["success"])
}

func TestSummary_EncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Summarize(sampleResult()).Encode(&buf, "json"))

	var back Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "calm", back.Passes[0].Name)
	assert.Equal(t, uint64(10605), back.Passes[0].Activity)
}

func TestSummary_EncodeUnknown(t *testing.T) {
	assert.Error(t, Summarize(sampleResult()).Encode(&bytes.Buffer{}, "xml"))
}
