package analysis

import (
	"context"
	"fmt"
	"time"

	"compliance-backend/internal/llm"
	"compliance-backend/internal/organizations"
)

// Run is the outcome of one call to the model, or of the fallback that replaced it.
type Run struct {
	Result   organizations.AnalysisResult
	Fallback bool
	Reason   string
}

// Analyzer asks the model for a gap analysis and writes the result through
// to the organization record.
type Analyzer struct {
	Client llm.Client
	Store  organizations.Store
	Now    func() time.Time
}

// Analyze runs the model for org. Fallback-eligible provider failures yield
// a placeholder result; every other failure is returned.
func (a *Analyzer) Analyze(ctx context.Context, org organizations.Organization) (Run, error) {
	prompt, err := BuildPrompt(org)
	if err != nil {
		return Run{}, fmt.Errorf("build prompt: %w", err)
	}

	var run Run
	text, err := a.Client.Complete(ctx, prompt)
	if err != nil {
		perr, ok := llm.AsFallback(err)
		if !ok {
			return Run{}, fmt.Errorf("analysis provider: %w", err)
		}
		run = Run{
			Result:   BuildFallback(org, perr.Reason()),
			Fallback: true,
			Reason:   perr.Reason(),
		}
	} else {
		result, err := ParseResponse(text)
		if err != nil {
			return Run{}, err
		}
		run.Result = result
	}

	run.Result.AnalyzedAt = a.now().UTC().Truncate(time.Millisecond)
	updated, err := a.Store.Update(ctx, org.ID, organizations.Update{AnalysisResult: &run.Result})
	if err != nil {
		return Run{}, fmt.Errorf("persist analysis: %w", err)
	}
	if updated.AnalysisResult != nil {
		run.Result = *updated.AnalysisResult
	}
	return run, nil
}

func (a *Analyzer) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
