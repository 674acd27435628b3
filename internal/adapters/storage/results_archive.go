// Package storage archives final experiment results as gzip-compressed
// JSON snapshots on the local filesystem.
package storage

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/util"
)

type ResultsArchive struct {
	baseDir string
}

// NewResultsArchive stores snapshots under the XDG data dir.
func NewResultsArchive() (*ResultsArchive, error) {
	baseDir, err := util.GetXDGDataDir()
	if err != nil {
		return nil, err
	}
	return NewResultsArchiveAt(filepath.Join(baseDir, "results"))
}

func NewResultsArchiveAt(dir string) (*ResultsArchive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create results directory")
	}
	return &ResultsArchive{baseDir: dir}, nil
}

// Store writes the analysis, replacing any earlier snapshot of the same
// experiment, and returns the file path.
func (s *ResultsArchive) Store(_ context.Context, analysis *domain.Analysis) (string, error) {
	destPath := s.getPath(analysis.ExperimentID)
	tmpPath := destPath + ".tmp"

	dest, err := os.Create(tmpPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to create snapshot file")
	}
	defer func() { _ = dest.Close() }()

	gw := gzip.NewWriter(dest)
	if err := json.NewEncoder(gw).Encode(analysis); err != nil {
		_ = gw.Close()
		return "", errors.Wrap(err, "failed to encode snapshot")
	}
	if err := gw.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close gzip writer")
	}
	if err := dest.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close snapshot file")
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", errors.Wrap(err, "failed to move snapshot into place")
	}
	return destPath, nil
}

// Get returns (nil, nil) when no snapshot exists for the experiment.
func (s *ResultsArchive) Get(_ context.Context, experimentID string) (*domain.Analysis, error) {
	file, err := os.Open(s.getPath(experimentID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open snapshot")
	}
	defer func() { _ = file.Close() }()

	gr, err := gzip.NewReader(file)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gzip reader")
	}
	defer func() { _ = gr.Close() }()

	var analysis domain.Analysis
	if err := json.NewDecoder(gr).Decode(&analysis); err != nil {
		return nil, errors.Wrap(err, "failed to decode snapshot")
	}
	return &analysis, nil
}

func (s *ResultsArchive) Delete(_ context.Context, experimentID string) error {
	if err := os.Remove(s.getPath(experimentID)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete snapshot")
	}
	return nil
}

func (s *ResultsArchive) getPath(experimentID string) string {
	return filepath.Join(s.baseDir, experimentID+".json.gz")
}
