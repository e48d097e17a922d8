//go:build basic || database

// Package integration runs the built propensity binary end to end.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/propensity/schema"
	"github.com/stretchr/testify/require"
)

var (
	// sharedBinaryPath holds the path to a shared propensity binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getPropensityBinary returns the path to the propensity binary, building it once if needed.
func getPropensityBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "propensity-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binPath := filepath.Join(tempDir, "propensity")
		buildCmd := exec.Command("go", "build", "-o", binPath, ".")
		buildCmd.Dir = ".." // Build from project root
		if err := buildCmd.Run(); err != nil {
			panic(fmt.Sprintf("failed to build propensity: %v", err))
		}

		sharedBinaryPath = binPath
	})

	return sharedBinaryPath
}

// runPropensity runs the binary with an isolated HOME and returns stdout.
func runPropensity(t *testing.T, home string, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getPropensityBinary(), args...)
	cmd.Env = append(os.Environ(), "HOME="+home)
	cmd.Env = append(cmd.Env, env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Logf("Command failed: %s\nStdout: %s\nStderr: %s", cmd.String(), stdout.String(), stderr.String())
		return stdout.String(), err
	}
	return stdout.String(), nil
}

// writeFixtures writes a labeled property file and a market snapshot into dir.
func writeFixtures(t *testing.T, dir string, n int) (propsPath, marketPath string) {
	t.Helper()
	zips := []string{"78701", "78702", "94102"}
	props := make([]schema.PropertyOpportunity, 0, n)
	for i := range n {
		high := i%2 == 0
		equity, years, listing := 30000.0, 1.0+float64(i%3), 15.0
		if high {
			equity, years, listing = 260000.0, 9.0+float64(i%5), 80.0
		}
		state := "TX"
		if zips[i%3] == "94102" {
			state = "CA"
		}
		outcome := 0
		if high {
			outcome = 1
		}
		props = append(props, schema.PropertyOpportunity{
			ID:              fmt.Sprintf("it-%03d", i),
			Address:         fmt.Sprintf("%d Elm St", i+1),
			City:            "Springfield",
			State:           state,
			Zip:             zips[i%3],
			OwnerType:       "individual",
			MarketValue:     350000 + float64(i)*1000,
			EstimatedEquity: schema.Ptr(equity),
			YearsInHome:     schema.Ptr(years),
			ListingScore:    schema.Ptr(listing),
			SellerOutcome:   schema.Ptr(outcome),
		})
	}
	market := map[string]*schema.MarketData{
		"zip:78701": {
			Listing: &schema.ListingMarket{MedianDaysOnMarket: schema.Ptr(20.0), MonthsOfSupply: schema.Ptr(1.8)},
		},
		"state:tx": {
			Economic: &schema.EconomicIndicators{MortgageRate30Y: schema.Ptr(6.8), UnemploymentRate: schema.Ptr(3.9)},
		},
	}

	propsPath = filepath.Join(dir, "properties.json")
	marketPath = filepath.Join(dir, "market.json")
	writeJSON(t, propsPath, props)
	writeJSON(t, marketPath, market)
	return propsPath, marketPath
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
