package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// The collectors are package globals, so every test works on deltas.

func TestObserveEvaluation(t *testing.T) {
	before := testutil.ToFloat64(evaluations.WithLabelValues("sauna", OutcomeUnconverged))
	nonConvBefore := testutil.ToFloat64(nonConvergence)

	ObserveEvaluation("sauna", OutcomeUnconverged, 0.001, 10)

	if got := testutil.ToFloat64(evaluations.WithLabelValues("sauna", OutcomeUnconverged)); got != before+1 {
		t.Fatalf("evaluations = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(nonConvergence); got != nonConvBefore+1 {
		t.Fatalf("nonconvergence = %v, want %v", got, nonConvBefore+1)
	}
}

func TestObserveEvaluation_NotFoundSkipsDuration(t *testing.T) {
	durBefore := testutil.CollectAndCount(evalDur)
	ObserveEvaluation("", OutcomeNotFound, 0, 0)
	if got := testutil.CollectAndCount(evalDur); got != durBefore {
		t.Fatalf("duration series = %d, want %d", got, durBefore)
	}
}

func TestInitAndWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg)
	SnapshotOptions.Set(42)

	path := filepath.Join(t.TempDir(), "configurator.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "configurator_snapshot_options 42") {
		t.Fatalf("textfile missing gauge:\n%s", raw)
	}
}

func TestWriteTextfile_EmptyPath(t *testing.T) {
	if err := WriteTextfile("", nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
