package analysis

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"compliance-backend/internal/analytics"
	"compliance-backend/internal/llm"
	"compliance-backend/internal/organizations"
	"compliance-backend/internal/shared/telemetry"
)

const healthyResponse = `Sure, here is the analysis:
{"overallScore": 72, "gaps": [{"control": "A.16", "description": "No incident plan", "severity": "high"}],
 "remedies": [{"action": "Write an incident plan", "timeline": "2 weeks"}],
 "stepByStepPlan": ["Draft plan", "Review plan"]}
Let me know if you need anything else.`

type fakeClient struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	text    string
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	first := f.calls == 1
	f.mu.Unlock()
	if first && f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.text, f.err
}

func (f *fakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var _ llm.Client = (*fakeClient)(nil)

type fixture struct {
	store     *organizations.MemoryStore
	client    *fakeClient
	analytics *analytics.Service
	orch      *Orchestrator
	now       time.Time
}

func newFixture(t *testing.T, client *fakeClient) *fixture {
	t.Helper()
	prev := telemetry.SetOutput(io.Discard)
	t.Cleanup(func() { telemetry.SetOutput(prev) })

	f := &fixture{
		store:     organizations.NewMemoryStore(),
		client:    client,
		analytics: &analytics.Service{Store: analytics.NewMemoryStore()},
		now:       time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.orch = &Orchestrator{
		Store:    f.store,
		Analyzer: &Analyzer{Client: client, Store: f.store, Now: clock},
		Tracker:  f.analytics,
		Coalesce: true,
		Now:      clock,
	}
	for _, id := range []string{"org-1", "org-2", "org-3"} {
		score := 62
		if _, err := f.store.CreateWithID(context.Background(), id, organizations.NewOrganization{
			Name:            "Org " + id,
			ComplianceScore: &score,
		}); err != nil {
			t.Fatalf("CreateWithID: %v", err)
		}
	}
	return f
}

func (f *fixture) analysisRuns(t *testing.T, orgID string) int {
	t.Helper()
	stats, err := f.analytics.UsageStats(context.Background(), orgID)
	if err != nil {
		t.Fatalf("UsageStats: %v", err)
	}
	return stats.TotalAnalyses
}
