package analysis

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"compliance-backend/internal/analytics"
	"compliance-backend/internal/organizations"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/telemetry"
)

var ErrNoAnalysis = errors.New("no analysis available")

// Tracker records usage events.
type Tracker interface {
	Track(ctx context.Context, orgID string, eventType analytics.EventType, userID string, metadata map[string]any) error
}

// Outcome is what RequestAnalysis hands back to callers.
type Outcome struct {
	Result organizations.AnalysisResult
	Cached bool
}

// Orchestrator serves cached analyses and runs the Analyzer on a miss.
type Orchestrator struct {
	Store    organizations.Store
	Analyzer *Analyzer
	Tracker  Tracker

	// CacheTTL expires cached results; zero keeps them until a forced refresh.
	CacheTTL time.Duration
	// Coalesce shares one model call between concurrent requests for the same organization.
	Coalesce bool
	Now      func() time.Time

	group singleflight.Group
}

// RequestAnalysis returns the cached analysis unless force is set or the
// cache is empty or stale, in which case it runs the Analyzer.
func (o *Orchestrator) RequestAnalysis(ctx context.Context, orgID string, force bool, userID string) (Outcome, error) {
	org, err := o.Store.Get(ctx, orgID)
	if err != nil {
		return Outcome{}, err
	}

	if !force && o.fresh(org.AnalysisResult) {
		metrics.IncAnalysisCacheHit()
		telemetry.Info("analysis.run", map[string]any{
			"org_id": orgID,
			"cached": true,
		})
		return Outcome{Result: *org.AnalysisResult, Cached: true}, nil
	}

	if !o.Coalesce {
		run, err := o.run(ctx, org, force, userID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Result: run.Result}, nil
	}

	// The shared call outlives any single caller's cancellation.
	detached := context.WithoutCancel(ctx)
	v, err, shared := o.group.Do(orgID, func() (any, error) {
		return o.run(detached, org, force, userID)
	})
	if err != nil {
		return Outcome{}, err
	}
	run := v.(Run)
	if shared {
		telemetry.Info("analysis.coalesced", map[string]any{"org_id": orgID})
	}
	return Outcome{Result: *run.Result.Clone()}, nil
}

// Cached returns the stored analysis without touching the model.
func (o *Orchestrator) Cached(ctx context.Context, orgID string) (organizations.AnalysisResult, error) {
	org, err := o.Store.Get(ctx, orgID)
	if err != nil {
		return organizations.AnalysisResult{}, err
	}
	if org.AnalysisResult == nil {
		return organizations.AnalysisResult{}, ErrNoAnalysis
	}
	return *org.AnalysisResult, nil
}

func (o *Orchestrator) run(ctx context.Context, org organizations.Organization, force bool, userID string) (Run, error) {
	start := time.Now()
	metrics.IncAnalysisRun()
	run, err := o.Analyzer.Analyze(ctx, org)
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	metrics.ObserveAnalysisDurationMs(durationMs)

	fields := map[string]any{
		"org_id":      org.ID,
		"cached":      false,
		"forced":      force,
		"duration_ms": durationMs,
	}
	if err != nil {
		metrics.IncAnalysisFailure()
		fields["error"] = err.Error()
		telemetry.Error("analysis.run", fields)
		return Run{}, err
	}
	if run.Fallback {
		metrics.IncAnalysisFallback()
		fields["fallback"] = true
		fields["reason"] = run.Reason
		telemetry.Warn("analysis.run", fields)
	} else {
		fields["fallback"] = false
		telemetry.Info("analysis.run", fields)
	}

	if o.Tracker != nil {
		metadata := map[string]any{"fallback": run.Fallback, "forced": force}
		if err := o.Tracker.Track(ctx, org.ID, analytics.EventAnalysisRun, userID, metadata); err != nil {
			telemetry.Warn("analytics.track_failed", map[string]any{
				"org_id":     org.ID,
				"event_type": string(analytics.EventAnalysisRun),
				"error":      err.Error(),
			})
		}
	}
	return run, nil
}

func (o *Orchestrator) fresh(result *organizations.AnalysisResult) bool {
	if result == nil {
		return false
	}
	if o.CacheTTL <= 0 {
		return true
	}
	return o.now().Sub(result.AnalyzedAt) < o.CacheTTL
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
