package contract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlainLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{"smallest value possible", 0.0, UnlikelyValue},
		{"just before possible", 39.9, UnlikelyValue},
		{"exactly possible", 40.0, PossibleValue},
		{"just before likely", 59.9, PossibleValue},
		{"exactly likely", 60.0, LikelyValue},
		{"just before very likely", 79.9, LikelyValue},
		{"exactly very likely", 80.0, VeryLikelyValue},
		{"maximum", 100.0, VeryLikelyValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetPlainLabel(tt.input))
		})
	}
}

func TestGetColorLabel(t *testing.T) {
	for _, score := range []float64{10, 45, 65, 90} {
		label := GetColorLabel(score)
		assert.Contains(t, label, GetPlainLabel(score))
	}
}

func TestSelectOutputFile(t *testing.T) {
	f, err := SelectOutputFile("")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, f)

	path := filepath.Join(t.TempDir(), "out.txt")
	f, err = SelectOutputFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.FileExists(t, path)
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		width    int
		expected string
	}{
		{"fits", "12 Main St", 20, "12 Main St"},
		{"truncated", "1234 Very Long Boulevard", 10, "1234 Ve..."},
		{"tiny width untouched", "abcdef", 3, "abcdef"},
		{"multibyte", "Calle Señora 1", 8, "Calle..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateText(tt.text, tt.width))
		})
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v)
	}
	_, err := ParseBoolString("perhaps")
	assert.Error(t, err)
}

func TestDefaultPaths(t *testing.T) {
	assert.True(t, strings.HasSuffix(GetCacheDBFilePath(), ".propensity_cache.db"))
	assert.True(t, strings.HasSuffix(GetRunDBFilePath(), ".propensity_runs.db"))
	assert.True(t, strings.HasSuffix(GetModelDir(), filepath.Join(".propensity", "models")))
	assert.NotEqual(t, GetCacheDBFilePath(), GetRunDBFilePath())
}

func TestLocationKeyString(t *testing.T) {
	assert.Equal(t, "zip:94102", LocationKey{Level: ZipLocation, Value: "94102"}.String())
	assert.Equal(t, "city:austin|tx", LocationKey{Level: CityLocation, Value: "austin|tx"}.String())
}
