// Package registry persists trained seller models as versioned JSON files.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
)

const (
	filePrefix      = "seller-model-"
	latestFileName  = filePrefix + "latest.json"
	timestampLayout = "20060102T150405.000000000Z"
)

// FileRegistry stores models in one directory: a timestamped file per model
// plus a "latest" file that is overwritten on every Persist.
type FileRegistry struct {
	Dir string
	Now func() time.Time
}

var _ contract.ModelRegistry = &FileRegistry{} // Compile-time check

// NewFileRegistry creates a registry rooted at dir.
func NewFileRegistry(dir string) *FileRegistry {
	return &FileRegistry{Dir: dir, Now: time.Now}
}

// LatestPath returns the path of the "latest" file.
func (r *FileRegistry) LatestPath() string {
	return filepath.Join(r.Dir, latestFileName)
}

// Persist writes the model at the current schema version and makes it the latest.
// It returns the path of the timestamped file.
func (r *FileRegistry) Persist(model *schema.SellerModelWeights) (string, error) {
	if model == nil {
		return "", errors.New("cannot persist a nil model")
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	versioned := *model
	versioned.SchemaVersion = schema.CurrentModelSchemaVersion
	data, err := json.MarshalIndent(versioned, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode model: %w", err)
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	path := filepath.Join(r.Dir, filePrefix+now().UTC().Format(timestampLayout)+".json")
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	if err := writeAtomic(r.LatestPath(), data); err != nil {
		return "", err
	}
	return path, nil
}

// LoadLatest reads the latest model. It returns (nil, nil) when no model was ever persisted.
func (r *FileRegistry) LoadLatest() (*schema.SellerModelWeights, error) {
	data, err := os.ReadFile(r.LatestPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest model: %w", err)
	}
	model, _, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", r.LatestPath(), err)
	}
	return model, nil
}

// History lists the timestamped model files, newest first.
// Files that cannot be decoded are skipped with a warning.
func (r *FileRegistry) History() ([]schema.ModelHistoryEntry, error) {
	paths, err := r.modelFiles()
	if err != nil {
		return nil, err
	}
	entries := make([]schema.ModelHistoryEntry, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			contract.LogWarn("Skipping unreadable model file "+path, err)
			continue
		}
		model, version, err := Decode(data)
		if err != nil {
			contract.LogWarn("Skipping corrupt model file "+path, err)
			continue
		}
		entries = append(entries, schema.ModelHistoryEntry{
			ID:            model.ID,
			Algorithm:     model.Algorithm,
			TrainedAt:     model.TrainedAt,
			SchemaVersion: version,
			Path:          path,
			TrainingSize:  model.TrainingSize,
			AUC:           model.Metrics.AUC,
			Accuracy:      model.Metrics.Accuracy,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].TrainedAt.Equal(entries[j].TrainedAt) {
			return entries[i].TrainedAt.After(entries[j].TrainedAt)
		}
		return entries[i].Path > entries[j].Path
	})
	return entries, nil
}

// Migrate rewrites every model file older than the current schema version,
// including the latest file. It returns the number of files rewritten.
func (r *FileRegistry) Migrate() (int, error) {
	paths, err := r.modelFiles()
	if err != nil {
		return 0, err
	}
	if _, err := os.Stat(r.LatestPath()); err == nil {
		paths = append(paths, r.LatestPath())
	}

	migrated := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return migrated, fmt.Errorf("failed to read %s: %w", path, err)
		}
		model, version, err := Decode(data)
		if err != nil {
			return migrated, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		if version >= schema.CurrentModelSchemaVersion {
			continue
		}
		out, err := json.MarshalIndent(model, "", "  ")
		if err != nil {
			return migrated, fmt.Errorf("failed to encode %s: %w", path, err)
		}
		if err := writeAtomic(path, out); err != nil {
			return migrated, err
		}
		contract.LogInfo("migrated model file", "path", path, "from", version, "to", schema.CurrentModelSchemaVersion)
		migrated++
	}
	return migrated, nil
}

// modelFiles returns the timestamped model files in the registry directory.
func (r *FileRegistry) modelFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(r.Dir, filePrefix+"*.json"))
	if err != nil {
		return nil, err
	}
	out := matches[:0]
	for _, m := range matches {
		if filepath.Base(m) == latestFileName || strings.HasPrefix(filepath.Base(m), ".") {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// writeAtomic writes data to a temp file in the same directory and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
