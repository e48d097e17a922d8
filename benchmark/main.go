// Package main benchmarks the propensity CLI across synthetic portfolios of increasing size.
// Each command runs several times without a market cache, then with the SQLite cache,
// treating the first cached run as cold and averaging the rest as warm,
// and writes a CSV of the timings.
//
// Prerequisites:
// - propensity binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where the synthetic property and market files are written
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/propensity/schema"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Portfolio   string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	Sizes       map[string]int
	Order       []string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		Workers:     8,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Sizes:       map[string]int{"small": 1_000, "medium": 20_000, "large": 200_000},
		Order:       []string{"small", "medium", "large"},
	}

	if _, err := exec.LookPath("propensity"); err != nil {
		fmt.Printf("Prerequisites check failed: propensity binary not found in PATH\n")
		os.Exit(1)
	}

	marketPath, err := writePortfolios(config)
	if err != nil {
		fmt.Printf("Failed to write portfolios: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clearing cache...\n")
	clearCmd := exec.Command("propensity", "cache", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	}

	results := runBenchmarks(config, marketPath)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// writePortfolios writes one property file per size plus a shared market snapshot.
func writePortfolios(config BenchmarkConfig) (string, error) {
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return "", err
	}
	rng := rand.New(rand.NewPCG(42, 7))
	states := []string{"TX", "CA", "FL", "NY", "WA"}

	market := make(map[string]*schema.MarketData)
	for _, st := range states {
		market["state:"+strings.ToLower(st)] = &schema.MarketData{
			Economic: &schema.EconomicIndicators{
				MortgageRate30Y:  schema.Ptr(5.5 + rng.Float64()*2),
				UnemploymentRate: schema.Ptr(3 + rng.Float64()*3),
			},
		}
	}
	for z := range 200 {
		market[fmt.Sprintf("zip:%05d", 10000+z)] = &schema.MarketData{
			Listing: &schema.ListingMarket{
				MedianDaysOnMarket: schema.Ptr(10 + rng.Float64()*80),
				MonthsOfSupply:     schema.Ptr(1 + rng.Float64()*6),
			},
		}
	}
	marketPath := filepath.Join(config.WorkDir, "market.json")
	if err := writeJSON(marketPath, market); err != nil {
		return "", err
	}

	for name, n := range config.Sizes {
		props := make([]schema.PropertyOpportunity, n)
		for i := range props {
			value := 150_000 + rng.Float64()*900_000
			props[i] = schema.PropertyOpportunity{
				ID:              fmt.Sprintf("%s-%07d", name, i),
				State:           states[rng.IntN(len(states))],
				Zip:             fmt.Sprintf("%05d", 10000+rng.IntN(200)),
				MarketValue:     value,
				EstimatedEquity: schema.Ptr(value * rng.Float64()),
				YearsInHome:     schema.Ptr(rng.Float64() * 30),
				ListingScore:    schema.Ptr(rng.Float64() * 100),
			}
		}
		if err := writeJSON(portfolioPath(config, name), props); err != nil {
			return "", err
		}
	}
	return marketPath, nil
}

func portfolioPath(config BenchmarkConfig, name string) string {
	return filepath.Join(config.WorkDir, name+".json")
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// runBenchmarks executes score and rank against every portfolio.
func runBenchmarks(config BenchmarkConfig, marketPath string) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d portfolios, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Order), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, name := range config.Order {
		fmt.Printf("Benchmarking %s (%d properties)\n", name, config.Sizes[name])
		base := []string{"--input", portfolioPath(config, name), "--market-data", marketPath, "--no-model", "--workers", fmt.Sprint(config.Workers)}

		results = append(results, runBenchmarkSuite(config, name, "score", base))
		results = append(results, runBenchmarkSuite(config, name, "rank", base))
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command.
func runBenchmarkSuite(config BenchmarkConfig, portfolio, command string, extraArgs []string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, portfolio)

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, command, extraArgs, cacheBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Portfolio:   portfolio,
		Command:     command,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a propensity command multiple times with the given cache backend.
func runBenchmark(config BenchmarkConfig, command string, extraArgs []string, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := append([]string{command, "--cache-backend", cacheBackend}, extraArgs...)

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()
		cmd := exec.Command("propensity", args...)

		done := make(chan bool, 1)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output, command) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion.
func isSuccess(output []byte, command string) bool {
	phrase := "Scoring completed in"
	if command == "rank" {
		phrase = "Ranking completed in"
	}
	out := string(output)
	return strings.Contains(out, phrase) && strings.Contains(out, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("propensity_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"portfolio", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Portfolio, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary.
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range []string{"score", "rank"} {
		fmt.Printf("%s:\n", command)
		for _, result := range results {
			if result.Command == command {
				fmt.Printf("  %-8s: No-cache: %s, Cold: %s, Warm: %s\n", result.Portfolio, result.NoCacheTime, result.ColdTime, result.WarmTime)
			}
		}
	}
}
