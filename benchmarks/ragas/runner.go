// ABOUTME: Benchmark runner - builds an isolated pipeline per scenario
// ABOUTME: Ingests scenario documents, asks questions, and collects metric results

package ragas

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docchat/docchat/internal/core"
	"github.com/docchat/docchat/internal/index/memory"
	"github.com/docchat/docchat/internal/llm"
	"github.com/docchat/docchat/internal/models"
	"github.com/docchat/docchat/internal/storage"
)

// RunnerConfig carries pipeline tunables for benchmark runs
type RunnerConfig struct {
	ChunkMaxTokens     int
	ChunkOverlapTokens int
	TopK               int
	ContextTokenBudget int
	HistoryMaxMessages int
	EmbedBatchSize     int
}

// DefaultRunnerConfig mirrors the pipeline's production defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		ChunkMaxTokens:     200,
		ChunkOverlapTokens: 40,
		TopK:               5,
		ContextTokenBudget: 1500,
		HistoryMaxMessages: 20,
		EmbedBatchSize:     64,
	}
}

// BenchmarkRunner executes benchmark scenarios against the real pipeline
type BenchmarkRunner struct {
	client  *llm.Client
	cfg     RunnerConfig
	metrics *MetricsCalculator
	verbose bool
}

// NewBenchmarkRunner creates a benchmark runner using the given API key
func NewBenchmarkRunner(apiKey string, cfg RunnerConfig, verbose bool) (*BenchmarkRunner, error) {
	client, err := llm.NewClient(llm.DefaultConfig(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}
	return &BenchmarkRunner{
		client:  client,
		cfg:     cfg,
		metrics: NewMetricsCalculator(),
		verbose: verbose,
	}, nil
}

// RunAll executes every scenario and returns the collected results
func (r *BenchmarkRunner) RunAll(ctx context.Context) ([]TestResult, error) {
	var results []TestResult
	for _, scenario := range GetScenarios() {
		scenarioResults, err := r.RunScenario(ctx, scenario)
		if err != nil {
			results = append(results, TestResult{
				TestID:       scenario.ID,
				TestName:     scenario.Name,
				Status:       "FAIL",
				ErrorMessage: err.Error(),
			})
			continue
		}
		results = append(results, scenarioResults...)
	}
	return results, nil
}

// RunScenario executes a single scenario with a fresh, isolated pipeline
func (r *BenchmarkRunner) RunScenario(ctx context.Context, scenario TestScenario) ([]TestResult, error) {
	if r.verbose {
		fmt.Printf("\n========================================\n")
		fmt.Printf("RUNNING: %s\n", scenario.Name)
		fmt.Printf("========================================\n")
		fmt.Printf("Description: %s\n\n", scenario.Description)
	}

	// Fresh storage per scenario for isolation
	tmpDir, err := os.MkdirTemp("", fmt.Sprintf("docchat_bench_%s_", scenario.ID))
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	store, err := storage.NewStorageAt(filepath.Join(tmpDir, "bench.db"))
	if err != nil {
		return nil, fmt.Errorf("creating benchmark storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	idx := memory.NewStore()
	chunker, err := core.NewChunker(r.cfg.ChunkMaxTokens, r.cfg.ChunkOverlapTokens)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	retriever := core.NewRetriever(r.client, idx)
	ingestor := core.NewIngestor(store, r.client, idx, chunker, r.cfg.EmbedBatchSize)
	orchestrator := core.NewOrchestrator(retriever, r.client, store, core.OrchestratorConfig{
		TopK:               r.cfg.TopK,
		ContextTokenBudget: r.cfg.ContextTokenBudget,
		HistoryMaxMessages: r.cfg.HistoryMaxMessages,
	})

	sessionID := "bench_" + scenario.ID
	session, err := store.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	// Ingest scenario documents and remember id -> name for citation checks
	docNameByID := make(map[string]string, len(scenario.Documents))
	for _, doc := range scenario.Documents {
		report, err := ingestor.Ingest(ctx, session.Namespace, doc.Name, []byte(doc.Text), models.FormatMarkdown)
		if err != nil {
			return nil, fmt.Errorf("ingesting %s: %w", doc.Name, err)
		}
		docNameByID[report.DocumentID] = doc.Name
		if r.verbose {
			fmt.Printf("[Setup] ingested %s: %d chunks\n", doc.Name, report.ChunkCount)
		}
	}

	var results []TestResult
	for _, question := range scenario.Questions {
		if r.verbose {
			fmt.Printf("[Ask] %s\n", question.Question)
		}

		// Capture what retrieval surfaces, separately from generation
		retrieved, err := retriever.Retrieve(ctx, session.Namespace, question.Question, r.cfg.TopK)
		if err != nil {
			return nil, fmt.Errorf("retrieving for %q: %w", question.Question, err)
		}
		contextTexts := make([]string, len(retrieved))
		for i, res := range retrieved {
			contextTexts[i] = res.Text
		}

		answer, err := orchestrator.Generate(ctx, sessionID, question.Question)
		if err != nil {
			return nil, fmt.Errorf("answering %q: %w", question.Question, err)
		}

		result := r.metrics.EvaluateQuestion(scenario, question, answer, contextTexts, docNameByID)
		if r.verbose {
			fmt.Printf("[Result] %s  faithfulness=%.2f recall=%.2f grounding=%.2f\n",
				result.Status, result.FaithfulnessScore, result.ContextRecallScore, result.GroundingScore)
		}
		results = append(results, result)
	}

	return results, nil
}

// WriteReport writes results as JSON with a summary header
func WriteReport(results []TestResult, path string) error {
	passed := 0
	for _, r := range results {
		if r.Status == "PASS" {
			passed++
		}
	}

	report := map[string]interface{}{
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"total":        len(results),
		"passed":       passed,
		"failed":       len(results) - passed,
		"results":      results,
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
