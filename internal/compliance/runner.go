package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fhir4ds/fhirsql/internal/engine"
	"github.com/fhir4ds/fhirsql/internal/state"
)

// defaultInputID anchors cases that have no input file, so constant
// expressions still produce exactly one row.
const defaultInputID = "__default__"

// Runner executes a compliance suite against one database.
type Runner struct {
	// Engine translates and executes expressions.
	Engine *engine.Engine
	// Store persists run history. Optional.
	Store *state.Store
	// InputDir holds the JSON input resources referenced by the suite.
	InputDir string
	// Concurrency bounds parallel group execution. Defaults to 4.
	Concurrency int
	// Logger is the structured logger (nil uses a discard logger).
	Logger *slog.Logger
}

// Report summarizes one suite execution.
type Report struct {
	Suite    string
	Dialect  string
	RunID    string
	Total    int
	Passed   int
	Failed   int
	Errored  int
	Results  []state.CaseResult
	Duration time.Duration
}

type inputResource struct {
	ID           string
	ResourceType string
}

// Run loads the suite and its input resources, executes every case, and
// returns the report. Groups run in parallel; results are deterministic.
func (r *Runner) Run(ctx context.Context, suitePath string) (*Report, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	suite, err := LoadSuite(suitePath)
	if err != nil {
		return nil, err
	}

	inputs, err := r.loadInputs(ctx, suite)
	if err != nil {
		return nil, err
	}

	var run *state.ComplianceRun
	if r.Store != nil {
		run, err = r.Store.BeginRun(ctx, suite.Name, r.Engine.DialectName())
		if err != nil {
			return nil, err
		}
	}

	start := time.Now()
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var mu sync.Mutex
	var results []state.CaseResult

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, group := range suite.Groups {
		g.Go(func() error {
			for _, c := range group.Tests {
				if err := gctx.Err(); err != nil {
					return err
				}
				res := r.runCase(gctx, group.Name, c, inputs)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Group != results[j].Group {
			return results[i].Group < results[j].Group
		}
		return results[i].Name < results[j].Name
	})

	report := &Report{
		Suite:    suite.Name,
		Dialect:  r.Engine.DialectName(),
		Results:  results,
		Duration: time.Since(start),
	}
	for _, res := range results {
		report.Total++
		switch res.Status {
		case state.StatusPass:
			report.Passed++
		case state.StatusFail:
			report.Failed++
		case state.StatusError:
			report.Errored++
		}
	}

	if r.Store != nil {
		run.Total = report.Total
		run.Passed = report.Passed
		run.Failed = report.Failed
		run.Errored = report.Errored
		if err := r.Store.CompleteRun(ctx, run, results); err != nil {
			return nil, err
		}
		report.RunID = run.ID
	}

	logger.Info("compliance run finished",
		"suite", suite.Name,
		"total", report.Total,
		"passed", report.Passed,
		"failed", report.Failed,
		"errored", report.Errored,
	)
	return report, nil
}

// loadInputs loads every referenced input resource into the resource table
// and returns the inputfile to resource mapping. Input files are JSON; an
// inputfile named with another extension resolves to its .json sibling.
func (r *Runner) loadInputs(ctx context.Context, suite *Suite) (map[string]inputResource, error) {
	inputs := map[string]inputResource{}
	var lines []string

	for _, name := range suite.InputFiles() {
		base := strings.TrimSuffix(name, filepath.Ext(name)) + ".json"
		path := filepath.Join(r.InputDir, base)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input resource %s: %w", name, err)
		}

		var resource map[string]any
		if err := json.Unmarshal(data, &resource); err != nil {
			return nil, fmt.Errorf("invalid input resource %s: %w", name, err)
		}
		resourceType, _ := resource["resourceType"].(string)
		if resourceType == "" {
			return nil, fmt.Errorf("input resource %s has no resourceType", name)
		}
		id, _ := resource["id"].(string)
		if id == "" {
			id = strings.TrimSuffix(base, ".json")
			resource["id"] = id
		}

		line, err := json.Marshal(resource)
		if err != nil {
			return nil, fmt.Errorf("failed to encode input resource %s: %w", name, err)
		}
		lines = append(lines, string(line))
		inputs[name] = inputResource{ID: id, ResourceType: resourceType}
	}

	// Anchor row for cases without an input file.
	lines = append(lines, fmt.Sprintf(`{"resourceType":"Patient","id":"%s"}`, defaultInputID))

	if _, err := r.Engine.LoadResources(ctx, strings.NewReader(strings.Join(lines, "\n"))); err != nil {
		return nil, fmt.Errorf("failed to load input resources: %w", err)
	}
	return inputs, nil
}

func (r *Runner) runCase(ctx context.Context, group string, c Case, inputs map[string]inputResource) state.CaseResult {
	result := state.CaseResult{
		Group:      group,
		Name:       c.Name,
		Expression: c.Expression,
	}

	input := inputResource{ID: defaultInputID, ResourceType: "Patient"}
	if c.InputFile != "" {
		input = inputs[c.InputFile]
	}

	if c.Invalid {
		if _, err := r.Engine.Translate(c.Expression, input.ResourceType); err != nil {
			result.Status = state.StatusPass
		} else {
			result.Status = state.StatusFail
			result.Detail = "expected translation to fail"
		}
		return result
	}

	res, err := r.Engine.Run(ctx, c.Expression, input.ResourceType)
	if err != nil {
		result.Status = state.StatusError
		result.Detail = err.Error()
		return result
	}

	var actual []string
	for _, row := range res.Rows {
		if len(row) < 2 || fmt.Sprint(row[0]) != input.ID || row[1] == nil {
			continue
		}
		actual = append(actual, normalizeValue(row[1]))
	}

	expected := make([]string, 0, len(c.Outputs))
	for _, o := range c.Outputs {
		expected = append(expected, o.Value)
	}

	if !equalOrdered(expected, actual) {
		result.Status = state.StatusFail
		result.Detail = fmt.Sprintf("expected %v, got %v", expected, actual)
		return result
	}

	result.Status = state.StatusPass
	return result
}

func equalOrdered(expected, actual []string) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if expected[i] != actual[i] {
			return false
		}
	}
	return true
}

// normalizeValue renders a driver value the way suite outputs are written.
func normalizeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
