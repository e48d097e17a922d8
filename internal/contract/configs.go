package contract

import (
	"fmt"
	"maps"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/propensity/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit = 25
	MaxResultLimit     = 10000
	DefaultPrecision   = 1
	DefaultTopN        = 5
	DefaultModelWeight = 0.4
	DefaultCacheTTL    = 24 * time.Hour
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateFormat is the accepted layout for --as-of in addition to RFC 3339.
const DateFormat = time.DateOnly

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ComponentWeightsRaw holds custom component weights from the YAML config file.
// Use float64 pointers for optional fields.
type ComponentWeightsRaw struct {
	OwnerEquityReadiness  *float64 `mapstructure:"owner_equity_readiness"`
	MarketHeat            *float64 `mapstructure:"market_heat"`
	AffordabilityPressure *float64 `mapstructure:"affordability_pressure"`
	MacroEconomicMomentum *float64 `mapstructure:"macro_economic_momentum"`
}

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	InputPath      string
	MarketDataPath string
	ModelDir       string
	AsOf           time.Time

	ResultLimit int
	Workers     int
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	Width       int // Terminal width override (0 = auto-detect)
	Detail      bool
	UseColors   bool

	GeoLevels   []schema.GeoLevel
	TopN        int
	UseModel    bool
	ModelWeight float64

	Algorithm      schema.Algorithm
	Folds          int
	Seed           uint64
	SkipEvaluation bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext
	CacheTTL       time.Duration

	RunBackend   schema.DatabaseBackend
	RunDBConnect string // Please use env var as this is plaintext

	LogLevel        string
	LogFormat       string
	MetricsTextfile string

	// CustomWeights holds the component weights provided by the user.
	CustomWeights map[schema.ComponentKey]float64

	// ComputedWeights is the final component weights map, computed from defaults + custom overrides
	ComputedWeights map[schema.ComponentKey]float64
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Input          string `mapstructure:"input"`
	MarketData     string `mapstructure:"market-data"`
	ModelDir       string `mapstructure:"model-dir"`
	AsOf           string `mapstructure:"as-of"`
	OutputFile     string `mapstructure:"output-file"`
	Limit          int    `mapstructure:"limit"`
	Workers        int    `mapstructure:"workers"`
	Precision      int    `mapstructure:"precision"`
	Output         string `mapstructure:"output"`
	Width          int    `mapstructure:"width"`
	Detail         bool   `mapstructure:"detail"`
	Color          string `mapstructure:"color"`
	CacheBackend   string `mapstructure:"cache-backend"`
	CacheDBConnect string `mapstructure:"cache-db-connect"`
	CacheTTL       string `mapstructure:"cache-ttl"`
	RunBackend     string `mapstructure:"run-backend"`
	RunDBConnect   string `mapstructure:"run-db-connect"`
	LogLevel       string `mapstructure:"log-level"`
	LogFormat      string `mapstructure:"log-format"`
	MetricsFile    string `mapstructure:"metrics-textfile"`

	// --- Fields from rankCmd / scoreCmd flags ---
	Levels      string  `mapstructure:"levels"`
	Top         int     `mapstructure:"top"`
	NoModel     bool    `mapstructure:"no-model"`
	ModelWeight float64 `mapstructure:"model-weight"`

	// --- Fields from trainCmd.Flags() ---
	Algorithm      string `mapstructure:"algorithm"`
	Folds          int    `mapstructure:"folds"`
	Seed           uint64 `mapstructure:"seed"`
	SkipEvaluation bool   `mapstructure:"skip-evaluation"`

	// --- Custom weights from config file ---
	Weights ComponentWeightsRaw `mapstructure:"weights"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.GeoLevels != nil {
		clone.GeoLevels = make([]schema.GeoLevel, len(c.GeoLevels))
		copy(clone.GeoLevels, c.GeoLevels)
	}
	if c.CustomWeights != nil {
		clone.CustomWeights = maps.Clone(c.CustomWeights)
	}
	if c.ComputedWeights != nil {
		clone.ComputedWeights = maps.Clone(c.ComputedWeights)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processAsOf(cfg, input); err != nil {
		return err
	}
	if err := processRanking(cfg, input); err != nil {
		return err
	}
	if err := processTraining(cfg, input); err != nil {
		return err
	}
	return processCustomWeights(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL, PostgreSQL and Redis backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	case schema.RedisBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.HasPrefix(connStr, "redis://") && !strings.HasPrefix(connStr, "rediss://") {
			return fmt.Errorf("Redis connection string must start with redis:// or rediss://")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all scalar fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.InputPath = strings.TrimSpace(input.Input)
	cfg.MarketDataPath = strings.TrimSpace(input.MarketData)
	cfg.ModelDir = strings.TrimSpace(input.ModelDir)
	if cfg.ModelDir == "" {
		cfg.ModelDir = GetModelDir()
	}
	cfg.OutputFile = input.OutputFile
	cfg.Detail = input.Detail
	cfg.Width = input.Width
	cfg.LogLevel = input.LogLevel
	cfg.LogFormat = input.LogFormat
	cfg.MetricsTextfile = strings.TrimSpace(input.MetricsFile)

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. ResultLimit Validation ---
	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	// --- 2. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 3. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	return nil
}

// validateBackendConfigs validates cache and run backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidCacheBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, redis, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	cfg.CacheTTL = DefaultCacheTTL
	if input.CacheTTL != "" {
		ttl, err := time.ParseDuration(input.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid cache-ttl '%s': %w", input.CacheTTL, err)
		}
		if ttl <= 0 {
			return fmt.Errorf("cache-ttl must be positive (received %s)", input.CacheTTL)
		}
		cfg.CacheTTL = ttl
	}

	// --- Run Backend Validation ---
	cfg.RunBackend = schema.DatabaseBackend(strings.ToLower(input.RunBackend))
	if cfg.RunBackend == "" {
		cfg.RunBackend = schema.NoneBackend
		return nil
	}
	if _, ok := schema.ValidRunBackends[cfg.RunBackend]; !ok {
		return fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", input.RunBackend)
	}
	cfg.RunDBConnect = input.RunDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RunBackend, cfg.RunDBConnect); err != nil {
		return err
	}

	// Validate that cache and runs use different databases
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.RunBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		runDBPath := cfg.RunDBConnect
		if runDBPath == "" {
			runDBPath = GetRunDBFilePath()
		}
		if cacheDBPath == runDBPath {
			return fmt.Errorf("cache and run storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// processAsOf parses the scoring reference time. Empty means now.
func processAsOf(cfg *Config, input *ConfigRawInput) error {
	cfg.AsOf = time.Now().UTC()
	s := strings.TrimSpace(input.AsOf)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(DateTimeFormat, s); err == nil {
		cfg.AsOf = t.UTC()
		return nil
	}
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return fmt.Errorf("invalid as-of date '%s'. Expected RFC 3339 or YYYY-MM-DD", input.AsOf)
	}
	cfg.AsOf = t.UTC()
	return nil
}

// processRanking handles the leaderboard levels and model blending.
func processRanking(cfg *Config, input *ConfigRawInput) error {
	cfg.TopN = input.Top
	if cfg.TopN == 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.TopN < 0 {
		return fmt.Errorf("top must be greater than 0 (received %d)", input.Top)
	}

	levels, err := ParseGeoLevels(input.Levels)
	if err != nil {
		return err
	}
	cfg.GeoLevels = levels

	cfg.UseModel = !input.NoModel
	if input.ModelWeight < 0 || input.ModelWeight > 1 {
		return fmt.Errorf("model-weight must be between 0.0 and 1.0 (received %.2f)", input.ModelWeight)
	}
	cfg.ModelWeight = input.ModelWeight
	return nil
}

// processTraining handles the trainer flags.
func processTraining(cfg *Config, input *ConfigRawInput) error {
	cfg.Algorithm = schema.Algorithm(strings.ToLower(input.Algorithm))
	if cfg.Algorithm == "" {
		cfg.Algorithm = schema.LogisticRegression
	}
	if _, ok := schema.ValidAlgorithms[cfg.Algorithm]; !ok {
		return fmt.Errorf("invalid algorithm '%s'. must be logistic-regression, gradient-boosting", input.Algorithm)
	}
	if input.Folds < 0 {
		return fmt.Errorf("folds cannot be negative (received %d)", input.Folds)
	}
	cfg.Folds = input.Folds
	cfg.Seed = input.Seed
	cfg.SkipEvaluation = input.SkipEvaluation
	return nil
}

// ParseGeoLevels parses a comma-separated list of geography levels.
// An empty string selects every level.
func ParseGeoLevels(s string) ([]schema.GeoLevel, error) {
	if strings.TrimSpace(s) == "" || strings.EqualFold(strings.TrimSpace(s), "all") {
		return append([]schema.GeoLevel(nil), schema.AllGeoLevels...), nil
	}
	var levels []schema.GeoLevel
	seen := map[schema.GeoLevel]bool{}
	for part := range strings.SplitSeq(s, ",") {
		level := schema.GeoLevel(strings.ToLower(strings.TrimSpace(part)))
		if level == "" || seen[level] {
			continue
		}
		if _, ok := schema.ValidGeoLevels[level]; !ok {
			return nil, fmt.Errorf("invalid level '%s'. must be state, region, zip, county, neighborhood", part)
		}
		seen[level] = true
		levels = append(levels, level)
	}
	return levels, nil
}

// ProcessWeightsRawInput converts ComponentWeightsRaw into a weights map.
// If validateSum is true, it validates that the provided weights sum to 1.0.
func ProcessWeightsRawInput(weights ComponentWeightsRaw, validateSum bool) (map[schema.ComponentKey]float64, error) {
	result := make(map[schema.ComponentKey]float64)
	raw := map[schema.ComponentKey]*float64{
		schema.OwnerEquityReadiness:  weights.OwnerEquityReadiness,
		schema.MarketHeat:            weights.MarketHeat,
		schema.AffordabilityPressure: weights.AffordabilityPressure,
		schema.MacroEconomicMomentum: weights.MacroEconomicMomentum,
	}

	sum := 0.0
	for _, component := range schema.AllComponents {
		w := raw[component]
		if w == nil {
			continue
		}
		if *w < 0 {
			return nil, fmt.Errorf("weight for %s cannot be negative (received %.3f)", component, *w)
		}
		result[component] = *w
		sum += *w
	}

	if len(result) == 0 {
		return result, nil
	}
	if validateSum && len(result) == len(schema.AllComponents) && (sum < 0.999 || sum > 1.001) {
		return nil, fmt.Errorf("custom component weights must sum to 1.0, got %.3f", sum)
	}
	return result, nil
}

// processCustomWeights converts the raw input into cfg.CustomWeights and
// computes cfg.ComputedWeights from the defaults plus overrides.
// The computed weights must sum to 1.0.
func processCustomWeights(cfg *Config, input *ConfigRawInput) error {
	weights, err := ProcessWeightsRawInput(input.Weights, true)
	if err != nil {
		return err
	}
	cfg.CustomWeights = weights

	computed := schema.GetDefaultComponentWeights()
	maps.Copy(computed, weights)
	sum := 0.0
	for _, w := range computed {
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("component weights must sum to 1.0 after applying overrides, got %.3f", sum)
	}
	cfg.ComputedWeights = computed
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}
