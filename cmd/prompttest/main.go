package main

// Run the gap-analysis prompt against a fixture without touching any store:
//   go run ./cmd/prompttest -org testdata/org.yaml
//   go run ./cmd/prompttest -org testdata/org.yaml -dry-run

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"compliance-backend/internal/analysis"
	"compliance-backend/internal/bootstrap"
	"compliance-backend/internal/llm"
	"compliance-backend/internal/organizations"
	"compliance-backend/internal/scoring"
	"compliance-backend/internal/shared/config"
)

type fixture struct {
	Name                   string            `yaml:"name"`
	ComplianceScore        int               `yaml:"complianceScore"`
	LastScanDate           string            `yaml:"lastScanDate"`
	QuestionnaireResponses map[string]string `yaml:"questionnaireResponses"`
	ScanData               map[string]any    `yaml:"scanData"`
}

func main() {
	cfg := config.Load()

	orgPath := flag.String("org", "", "Path to an organization fixture (yaml)")
	provider := flag.String("provider", cfg.AIProvider, "AI provider (openai, bedrock)")
	model := flag.String("model", "", "Model override")
	outPath := flag.String("out", "", "Path to write the parsed JSON result (optional)")
	dryRun := flag.Bool("dry-run", false, "Print the prompt and exit")
	flag.Parse()

	if strings.TrimSpace(*orgPath) == "" {
		exitErr("org fixture path is required")
	}
	org, err := loadFixture(*orgPath)
	if err != nil {
		exitErr(err.Error())
	}

	prompt, err := analysis.BuildPrompt(org)
	if err != nil {
		exitErr(fmt.Sprintf("build prompt: %v", err))
	}
	if *dryRun {
		fmt.Println(prompt)
		return
	}

	cfg.AIProvider = strings.ToLower(strings.TrimSpace(*provider))
	if *model != "" {
		cfg.OpenAIModel = *model
		cfg.BedrockModelID = *model
	}
	ctx := context.Background()
	client, err := bootstrap.NewLLM(ctx, cfg)
	if err != nil {
		exitErr(fmt.Sprintf("build client: %v", err))
	}

	var result organizations.AnalysisResult
	text, err := client.Complete(ctx, prompt)
	if err != nil {
		perr, ok := llm.AsFallback(err)
		if !ok {
			exitErr(fmt.Sprintf("model call: %v", err))
		}
		fmt.Fprintf(os.Stderr, "provider unavailable (%s), showing fallback result\n", perr.Reason())
		result = analysis.BuildFallback(org, perr.Reason())
	} else {
		result, err = analysis.ParseResponse(text)
		if err != nil {
			fmt.Fprintln(os.Stderr, text)
			exitErr(fmt.Sprintf("parse response: %v", err))
		}
	}

	raw, err := json.Marshal(result)
	if err != nil {
		exitErr(fmt.Sprintf("encode result: %v", err))
	}
	pretty, err := prettyJSON(raw)
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}

	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	if len(pretty) == 0 || pretty[len(pretty)-1] != '\n' {
		_, _ = os.Stdout.Write([]byte("\n"))
	}
}

func loadFixture(path string) (organizations.Organization, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return organizations.Organization{}, fmt.Errorf("read fixture: %w", err)
	}
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return organizations.Organization{}, fmt.Errorf("parse fixture: %w", err)
	}
	if strings.TrimSpace(f.Name) == "" {
		return organizations.Organization{}, fmt.Errorf("fixture %s: name is required", path)
	}

	org := organizations.Organization{
		ID:                     "fixture",
		Name:                   f.Name,
		ComplianceScore:        f.ComplianceScore,
		Status:                 scoring.StatusFor(f.ComplianceScore),
		QuestionnaireResponses: f.QuestionnaireResponses,
		ScanData:               f.ScanData,
	}
	if len(f.QuestionnaireResponses) > 0 {
		org.ComplianceScore, org.Status = scoring.Evaluate(f.QuestionnaireResponses)
	}
	if f.LastScanDate != "" {
		date := f.LastScanDate
		org.LastScanDate = &date
	}
	return org, nil
}

func prettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
