package iocache

import (
	"bytes"
	"testing"
	"time"

	"github.com/huangsam/propensity/schema"
	"github.com/stretchr/testify/assert"
)

func TestPrintCacheStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.Equal(t, "Cache Backend: none\nConnected: false\n", buf.String())

	buf.Reset()
	PrintCacheStatus(&buf, schema.CacheStatus{
		Backend:         "sqlite",
		Connected:       true,
		TotalEntries:    3,
		LastEntryTime:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local),
		OldestEntryTime: time.Date(2024, 12, 1, 0, 0, 0, 0, time.Local),
		TableSizeBytes:  4096,
	})
	out := buf.String()
	assert.Contains(t, out, "Total Entries: 3")
	assert.Contains(t, out, "Last Entry: 2025-01-02 03:04:05")
	assert.Contains(t, out, "Oldest Entry: 2024-12-01 00:00:00")
	assert.Contains(t, out, "Table Size: 4096 bytes")
}

func TestPrintRunStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintRunStatus(&buf, schema.RunStatus{
		Backend:               "postgresql",
		Connected:             true,
		TotalRuns:             2,
		LastRunID:             7,
		TotalPropertiesScored: 120,
		TableSizes: map[string]int64{
			propertyScoresTable: 120,
			scoreRunsTable:      2,
		},
	})
	out := buf.String()
	assert.Contains(t, out, "Run Backend: postgresql")
	assert.Contains(t, out, "Last Run ID: 7")
	assert.Contains(t, out, "Total Properties Scored: 120")
	// Table sizes print in name order
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(propertyScoresTable)), bytes.Index(buf.Bytes(), []byte(scoreRunsTable)))
}
