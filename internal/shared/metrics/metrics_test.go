package metrics

import (
	"strings"
	"testing"
)

func TestRenderIncludesAnalysisSeries(t *testing.T) {
	IncAnalysisRun()
	IncAnalysisCacheHit()
	IncAnalysisFallback()
	ObserveAnalysisDurationMs(420)

	out := Render()
	for _, name := range []string{
		"analysis_runs_total",
		"analysis_cache_hits_total",
		"analysis_fallbacks_total",
		"analysis_failures_total",
		`analysis_duration_ms_bucket{le="500"}`,
		"analysis_duration_ms_count",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output:\n%s", name, out)
		}
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 2 {
		t.Fatalf("unexpected bucket counts: %v", snap.counts)
	}
}

func TestRateLimitedIsLabelledByGroup(t *testing.T) {
	IncRateLimited("ANALYZE")
	IncRateLimited("ANALYZE")
	IncRateLimited("PDF")

	out := Render()
	if !strings.Contains(out, `http_rate_limited_total{group="ANALYZE"}`) {
		t.Fatalf("missing ANALYZE series:\n%s", out)
	}
	if strings.Index(out, `group="ANALYZE"`) > strings.Index(out, `group="PDF"`) {
		t.Fatalf("expected series sorted by label:\n%s", out)
	}
}
