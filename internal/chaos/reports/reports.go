// Package reports writes chaos experiment summaries to disk as JSON files,
// one per experiment run, under a configurable directory (default
// "chaos/reports"). Adapted from the feedback package's append-only file
// persistence, generalized from JSON-lines to one-file-per-experiment since
// a report is a single point-in-time summary rather than a running log.
package reports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Harsha2sai/Maya-One/internal/telemetry"
)

// Report is the degradation/recovery summary for one chaos experiment run.
type Report struct {
	ExperimentID   string                  `json:"experiment_id"`
	ExperimentType string                  `json:"experiment_type"`
	TurnCount      int                     `json:"turn_count"`
	Baseline       telemetry.Aggregate     `json:"baseline"`
	DuringChaos    telemetry.Aggregate     `json:"during_chaos"`
	Recovery       telemetry.Aggregate     `json:"recovery"`
	RecoveredAfter int                     `json:"recovered_after_turns,omitempty"`
	Metrics        []telemetry.RequestMetrics `json:"metrics"`
}

// Writer persists [Report] values as pretty-printed JSON files named
// "<experiment_id>_<timestamp>.json" under Dir.
type Writer struct {
	mu  sync.Mutex
	Dir string
}

// NewWriter creates a Writer rooted at dir. The default is "chaos/reports"
// when dir is empty.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = filepath.Join("chaos", "reports")
	}
	return &Writer{Dir: dir}
}

// Write serializes report to a new file under w.Dir, creating the directory
// if necessary. The filename embeds timestamp (typically a Unix epoch
// value supplied by the caller, since this package never calls time.Now
// itself to stay deterministic under test).
func (w *Writer) Write(report Report, timestamp int64) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("reports: mkdir: %w", err)
	}

	name := fmt.Sprintf("%s_%d.json", report.ExperimentID, timestamp)
	path := filepath.Join(w.Dir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("reports: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("reports: write: %w", err)
	}
	return path, nil
}
