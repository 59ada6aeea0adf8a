package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/lebinh/aq/internal/ir"
)

// Transcript renders a scenario run as canonical JSON, one stable document
// per run.
func Transcript(scenario *Scenario, result *Result) ([]byte, error) {
	steps := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		step := map[string]any{
			"step":    event.Step,
			"elapsed": event.Elapsed,
			"query":   event.Query,
			"fetches": event.Fetches,
		}
		if event.Canonical != "" {
			step["canonical"] = event.Canonical
		}
		if event.Error != "" {
			step["error"] = event.Error
		} else {
			step["columns"] = event.Columns
			step["rows"] = event.Rows
		}
		steps[i] = step
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario": scenario.Name,
		"pass":     result.Pass,
		"steps":    steps,
	})
}

// RunWithGolden executes a scenario and compares its transcript against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	transcript, err := Transcript(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, transcript)

	return result, nil
}
