package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
)

// Table names for score-run tracking.
const (
	scoreRunsTable      = "propensity_score_runs"
	propertyScoresTable = "propensity_property_scores"
)

// scoreColumns is the column list of propertyScoresTable in insert order.
const scoreColumns = `run_id, property_id, scored_at, state, region, zip,
	score, confidence, heuristic_score,
	equity_readiness, market_heat, affordability_pressure, macro_momentum,
	model_probability, score_label`

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore creates a new RunStore with the specified backend.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (contract.RunStore, error) {
	switch backend {
	case schema.NoneBackend:
		return &RunStoreImpl{backend: backend}, nil
	case schema.SQLiteBackend:
		if connStr == "" {
			connStr = GetRunDBFilePath()
		}
	case schema.MySQLBackend, schema.PostgreSQLBackend:
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}

	db, err := openSQL(backend, connStr, getCreateScoreRunsQuery(backend), getCreatePropertyScoresQuery(backend))
	if err != nil {
		return nil, fmt.Errorf("run store: %w", err)
	}
	return &RunStoreImpl{db: db, backend: backend}, nil
}

// getCreateScoreRunsQuery returns the CREATE TABLE query for propensity_score_runs.
func getCreateScoreRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(scoreRunsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				total_properties INT,
				model_id VARCHAR(64),
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				total_properties INT,
				model_id TEXT,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				total_properties INTEGER,
				model_id TEXT,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreatePropertyScoresQuery returns the CREATE TABLE query for propensity_property_scores.
func getCreatePropertyScoresQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(propertyScoresTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				property_id VARCHAR(255) NOT NULL,
				scored_at DATETIME(6) NOT NULL,
				state VARCHAR(32),
				region VARCHAR(255),
				zip VARCHAR(16),
				score DOUBLE NOT NULL,
				confidence DOUBLE NOT NULL,
				heuristic_score DOUBLE NOT NULL,
				equity_readiness DOUBLE NOT NULL,
				market_heat DOUBLE NOT NULL,
				affordability_pressure DOUBLE NOT NULL,
				macro_momentum DOUBLE NOT NULL,
				model_probability DOUBLE,
				score_label VARCHAR(50) NOT NULL,
				PRIMARY KEY (run_id, property_id)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				property_id TEXT NOT NULL,
				scored_at TIMESTAMPTZ NOT NULL,
				state TEXT,
				region TEXT,
				zip TEXT,
				score DOUBLE PRECISION NOT NULL,
				confidence DOUBLE PRECISION NOT NULL,
				heuristic_score DOUBLE PRECISION NOT NULL,
				equity_readiness DOUBLE PRECISION NOT NULL,
				market_heat DOUBLE PRECISION NOT NULL,
				affordability_pressure DOUBLE PRECISION NOT NULL,
				macro_momentum DOUBLE PRECISION NOT NULL,
				model_probability DOUBLE PRECISION,
				score_label TEXT NOT NULL,
				PRIMARY KEY (run_id, property_id)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				property_id TEXT NOT NULL,
				scored_at TEXT NOT NULL,
				state TEXT,
				region TEXT,
				zip TEXT,
				score REAL NOT NULL,
				confidence REAL NOT NULL,
				heuristic_score REAL NOT NULL,
				equity_readiness REAL NOT NULL,
				market_heat REAL NOT NULL,
				affordability_pressure REAL NOT NULL,
				macro_momentum REAL NOT NULL,
				model_probability REAL,
				score_label TEXT NOT NULL,
				PRIMARY KEY (run_id, property_id)
			);
		`, quotedTableName)
	}
}

// BeginRun creates a new score run and returns its unique ID.
func (rs *RunStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if rs.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(scoreRunsTable, rs.backend)

	var runID int64
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING run_id`, quotedTableName)
		err = rs.db.QueryRow(query, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, quotedTableName)
		var result sql.Result
		result, err = rs.db.Exec(query, formatTime(startTime, rs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert score run: %w", err)
	}
	return runID, nil
}

// EndRun updates the score run with completion data.
func (rs *RunStoreImpl) EndRun(runID int64, endTime time.Time, totalProperties int, modelID string) error {
	if rs.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(scoreRunsTable, rs.backend)
	row := rs.db.QueryRow(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quotedTableName, placeholders(rs.backend, 1)), runID)

	startTime, err := rs.scanTime(row)
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	var model *string
	if modelID != "" {
		model = &modelID
	}

	var updateQuery string
	if rs.backend == schema.PostgreSQLBackend {
		updateQuery = fmt.Sprintf(`UPDATE %s SET end_time = $1, run_duration_ms = $2, total_properties = $3, model_id = $4 WHERE run_id = $5`, quotedTableName)
	} else {
		updateQuery = fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, total_properties = ?, model_id = ? WHERE run_id = ?`, quotedTableName)
	}
	if _, err := rs.db.Exec(updateQuery, formatTime(endTime, rs.backend), durationMs, totalProperties, model, runID); err != nil {
		return fmt.Errorf("failed to update score run: %w", err)
	}
	return nil
}

// RecordScore stores the final score of one property.
func (rs *RunStoreImpl) RecordScore(runID int64, score schema.SellerPropensityScore) error {
	if rs.db == nil {
		return nil
	}

	var probability *float64
	if score.Model != nil {
		p := score.Model.Probability
		probability = &p
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteTableName(propertyScoresTable, rs.backend), scoreColumns, placeholders(rs.backend, 15))
	args := []any{
		runID, score.PropertyID, formatTime(score.ScoredAt, rs.backend),
		score.Geography.State, score.Geography.Region, score.Geography.Zip,
		score.Score, score.Confidence, score.HeuristicScore,
		score.Components[schema.OwnerEquityReadiness].Score,
		score.Components[schema.MarketHeat].Score,
		score.Components[schema.AffordabilityPressure].Score,
		score.Components[schema.MacroEconomicMomentum].Score,
		probability, contract.GetPlainLabel(score.Score),
	}
	if _, err := rs.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert score for %s: %w", score.PropertyID, err)
	}
	return nil
}

// Close closes the underlying connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the run store.
func (rs *RunStoreImpl) GetStatus() (schema.RunStatus, error) {
	status := schema.RunStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.db == nil {
		return status, nil
	}

	runs := quoteTableName(scoreRunsTable, rs.backend)
	if err := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		row := rs.db.QueryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", runs))
		lastID, lastTime, err := rs.scanIDTime(row)
		if err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		status.LastRunID = lastID
		status.LastRunTime = lastTime

		row = rs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runs))
		if status.OldestRunTime, err = rs.scanTime(row); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}

		row = rs.db.QueryRow(fmt.Sprintf("SELECT COALESCE(SUM(total_properties), 0) FROM %s", runs))
		if err := row.Scan(&status.TotalPropertiesScored); err != nil {
			return status, fmt.Errorf("failed to get total properties scored: %w", err)
		}
	}

	for _, table := range []string{scoreRunsTable, propertyScoresTable} {
		var count int64
		row := rs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, rs.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllRuns retrieves all score runs from the store.
func (rs *RunStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT run_id, start_time, end_time, run_duration_ms, total_properties, model_id, config_params FROM %s ORDER BY run_id",
		quoteTableName(scoreRunsTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query score runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		if rs.backend == schema.SQLiteBackend {
			var startStr string
			var endStr *string
			if err := rows.Scan(&record.RunID, &startStr, &endStr, &record.RunDurationMs, &record.TotalProperties, &record.ModelID, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan score run: %w", err)
			}
			if record.StartTime, err = parseTime(startStr); err != nil {
				return nil, err
			}
			if endStr != nil {
				end, err := parseTime(*endStr)
				if err != nil {
					return nil, err
				}
				record.EndTime = &end
			}
		} else if err := rows.Scan(&record.RunID, &record.StartTime, &record.EndTime, &record.RunDurationMs, &record.TotalProperties, &record.ModelID, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan score run: %w", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating score runs: %w", err)
	}
	return results, nil
}

// GetAllScores retrieves all property scores from the store.
func (rs *RunStoreImpl) GetAllScores() ([]schema.ScoreRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY run_id, property_id`, scoreColumns, quoteTableName(propertyScoresTable, rs.backend))
	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query property scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ScoreRecord
	for rows.Next() {
		var r schema.ScoreRecord
		var state, region, zip sql.NullString
		var scoredAt any = &r.ScoredAt
		var scoredAtStr string
		if rs.backend == schema.SQLiteBackend {
			scoredAt = &scoredAtStr
		}
		if err := rows.Scan(&r.RunID, &r.PropertyID, scoredAt, &state, &region, &zip,
			&r.Score, &r.Confidence, &r.HeuristicScore,
			&r.EquityReadiness, &r.MarketHeat, &r.AffordabilityPressure, &r.MacroMomentum,
			&r.ModelProbability, &r.ScoreLabel); err != nil {
			return nil, fmt.Errorf("failed to scan property score: %w", err)
		}
		if rs.backend == schema.SQLiteBackend {
			if r.ScoredAt, err = parseTime(scoredAtStr); err != nil {
				return nil, err
			}
		}
		r.State, r.Region, r.Zip = state.String, region.String, zip.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating property scores: %w", err)
	}
	return results, nil
}

// scanTime reads a single timestamp column, handling SQLite's text encoding.
func (rs *RunStoreImpl) scanTime(row *sql.Row) (time.Time, error) {
	if rs.backend != schema.SQLiteBackend {
		var t time.Time
		err := row.Scan(&t)
		return t, err
	}
	var s string
	if err := row.Scan(&s); err != nil {
		return time.Time{}, err
	}
	return parseTime(s)
}

// scanIDTime reads a (run_id, timestamp) row.
func (rs *RunStoreImpl) scanIDTime(row *sql.Row) (int64, time.Time, error) {
	var id int64
	if rs.backend != schema.SQLiteBackend {
		var t time.Time
		err := row.Scan(&id, &t)
		return id, t, err
	}
	var s string
	if err := row.Scan(&id, &s); err != nil {
		return 0, time.Time{}, err
	}
	t, err := parseTime(s)
	return id, t, err
}
