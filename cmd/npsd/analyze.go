package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syncport-ai/npsd/internal/report"
	"github.com/syncport-ai/npsd/internal/state"
)

var (
	analyzeInput  string
	analyzeOutput string
	analyzeFormat string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis against a local responses file",
	Long: `Run the full workflow once over a JSON file of survey responses and
write the rendered report.

The input file holds a JSON array of response objects:

  [
    {"id": "r1", "score": 9, "comment": "love it", "product": "widget"},
    {"id": "r2", "score": 3, "comment": "keeps crashing"}
  ]

Examples:

  # JSON report to stdout
  npsd analyze --config config.yaml --input responses.json

  # HTML report to a file
  npsd analyze --config config.yaml --input responses.json --format html --output report.html`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "JSON file of survey responses (required)")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "output file (default stdout)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "report format: json or html")
	_ = analyzeCmd.MarkFlagRequired("input")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	records, err := readResponses(analyzeInput)
	if err != nil {
		return err
	}

	renderer, err := report.New(report.Format(analyzeFormat))
	if err != nil {
		return err
	}

	orchestrator, err := buildOrchestrator(cfg, logger)
	if err != nil {
		return err
	}

	result, err := orchestrator.Execute(cmd.Context(), records)
	if err != nil && result == nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if err != nil {
		logger.Warn("analysis finished with errors", zap.Error(err))
	}

	document, err := renderer.Render(result)
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	if analyzeOutput == "" {
		_, err = os.Stdout.Write(document)
		return err
	}
	if err := os.WriteFile(analyzeOutput, document, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	logger.Info("report written",
		zap.String("path", analyzeOutput),
		zap.String("status", string(result.Status)))
	return nil
}

// readResponses decodes a JSON array of survey responses.
func readResponses(path string) ([]state.SurveyResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	var records []state.SurveyResponse
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input file %s holds no responses", path)
	}
	return records, nil
}
