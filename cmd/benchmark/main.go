// ABOUTME: Command-line benchmark runner for retrieval quality tests
// ABOUTME: Executes the benchmark scenarios and outputs JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/docchat/docchat/benchmarks/ragas"
)

func main() {
	// Command-line flags
	testID := flag.String("test", "", "Run a specific scenario by id. If empty, runs all scenarios.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (continuing anyway): %v", err)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required for benchmarks")
	}

	fmt.Println("========================================")
	fmt.Println("docchat retrieval benchmarks")
	fmt.Println("========================================")
	fmt.Println()

	runner, err := ragas.NewBenchmarkRunner(apiKey, ragas.DefaultRunnerConfig(), *verbose)
	if err != nil {
		log.Fatalf("Failed to create benchmark runner: %v", err)
	}

	ctx := context.Background()
	var results []ragas.TestResult

	if *testID == "" {
		fmt.Println("Running all benchmark scenarios...")
		fmt.Println()

		results, err = runner.RunAll(ctx)
		if err != nil {
			log.Fatalf("Benchmark failed: %v", err)
		}
	} else {
		var scenario *ragas.TestScenario
		for _, s := range ragas.GetScenarios() {
			if s.ID == *testID {
				scenario = &s
				break
			}
		}
		if scenario == nil {
			log.Fatalf("Unknown scenario id: %s", *testID)
		}

		fmt.Printf("Running scenario: %s\n\n", scenario.Name)
		results, err = runner.RunScenario(ctx, *scenario)
		if err != nil {
			log.Fatalf("Scenario failed: %v", err)
		}
	}

	// Print summary
	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")

	passed := 0
	failed := 0

	for _, result := range results {
		fmt.Printf("\n%s: %s\n", result.TestID, result.TestName)
		if result.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", result.ErrorMessage)
		} else {
			fmt.Printf("  Faithfulness: %.2f\n", result.FaithfulnessScore)
			fmt.Printf("  Context Recall: %.2f\n", result.ContextRecallScore)
			fmt.Printf("  Grounding: %.2f\n", result.GroundingScore)
			fmt.Printf("  Overall: %.2f\n", result.OverallScore)
		}
		fmt.Printf("  Status: %s\n", result.Status)

		if result.Status == "PASS" {
			passed++
		} else {
			failed++
		}
	}

	fmt.Println("\n========================================")
	fmt.Printf("Total Tests: %d\n", len(results))
	fmt.Printf("Passed: %d\n", passed)
	fmt.Printf("Failed: %d\n", failed)
	fmt.Println("========================================")

	if err := ragas.WriteReport(results, *outputPath); err != nil {
		log.Fatalf("Failed to export results: %v", err)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
