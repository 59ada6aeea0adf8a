package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lebinh/aq/internal/engine"
	"github.com/lebinh/aq/internal/provider/fixture"
	"github.com/lebinh/aq/internal/querysql"
	"github.com/lebinh/aq/internal/store"
	"github.com/lebinh/aq/internal/testutil"
)

// ErrCodeParsing is the code reported for statements that fail to parse.
const ErrCodeParsing = "PARSING_ERROR"

// Harness runs scenarios with a fake clock and a counting provider.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	clock    *testutil.FakeClock
	provider *testutil.CountingProvider
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store, so scenarios are
// isolated from each other. The clock starts at testutil.Epoch and only
// moves when a step advances it.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	h, err := newHarness(ctx, scenario)
	if err != nil {
		return nil, err
	}
	defer h.store.Close()

	result := NewResult()
	for i, step := range scenario.Steps {
		event := h.runStep(ctx, step)
		event.Step = i + 1
		result.Trace = append(result.Trace, event)

		for _, msg := range checkStep(step, event) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", event.Step, step.Query, msg))
		}
	}
	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario) (*Harness, error) {
	var (
		fp  *fixture.Provider
		err error
	)
	if scenario.Fixture != "" {
		fp, err = fixture.Load(scenario.Fixture)
	} else {
		fp, err = fixture.New(fixture.Document{Collections: scenario.Collections})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}

	st, err := store.Open(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}

	h := &Harness{
		store:    st,
		clock:    testutil.NewFakeClock(),
		provider: testutil.NewCountingProvider(fp),
	}

	opts := []engine.EngineOption{
		engine.WithClock(h.clock),
		engine.WithQueryIDGenerator(testutil.NewFixedQueryIDGenerator(scenario.Name)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	if scenario.TTL > 0 {
		opts = append(opts, engine.WithTTL(scenario.TTL))
	}
	if scenario.DefaultNamespace != "" {
		opts = append(opts, engine.WithDefaultNamespace(scenario.DefaultNamespace))
	}

	h.engine, err = engine.New(ctx, st, h.provider, opts...)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return h, nil
}

// runStep advances the clock, runs the query, and records what happened.
func (h *Harness) runStep(ctx context.Context, step Step) TraceEvent {
	now := h.clock.Advance(step.Advance)
	before := h.provider.Counts()

	event := TraceEvent{
		Elapsed: now.Sub(testutil.Epoch).String(),
		Query:   step.Query,
	}
	if canonical, _, err := querysql.Parse(step.Query); err == nil {
		event.Canonical = canonical
	}

	res, err := h.engine.Execute(ctx, step.Query)
	event.Fetches = h.fetchDelta(before)
	if err != nil {
		event.Error = ErrorCode(err)
		event.Message = err.Error()
		return event
	}

	event.Columns = res.Columns
	event.Rows = normalizeRows(res.Rows)
	return event
}

// fetchDelta returns the List calls made since before, keyed the way
// expect clauses name tables.
func (h *Harness) fetchDelta(before map[string]int) map[string]int {
	prefix := h.engine.DefaultNamespace() + "."
	delta := make(map[string]int)
	for key, n := range h.provider.Counts() {
		if d := n - before[key]; d > 0 {
			delta[strings.TrimPrefix(key, prefix)] = d
		}
	}
	return delta
}

// ErrorCode classifies an Execute error.
func ErrorCode(err error) string {
	if querysql.IsParsingError(err) {
		return ErrCodeParsing
	}
	var qe *engine.QueryError
	if errors.As(err, &qe) {
		return string(qe.Code)
	}
	return "ERROR"
}

// normalizeRows replaces []byte values with strings so rows compare and
// print the same whichever type the driver picked.
func normalizeRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			out[i][j] = v
		}
	}
	return out
}
