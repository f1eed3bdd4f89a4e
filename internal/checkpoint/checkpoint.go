// Package checkpoint persists workflow state between passes so an
// operator can inspect or resume interrupted analyses.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrNotFound is returned when no checkpoint exists for a workflow.
var ErrNotFound = errors.New("checkpoint not found")

// Store persists and retrieves workflow checkpoints.
type Store interface {
	// Save writes the latest checkpoint for a workflow, replacing any
	// previous one.
	Save(ctx context.Context, workflowID string, state json.Marshaler) error

	// Load returns the serialized checkpoint, or ErrNotFound.
	Load(ctx context.Context, workflowID string) (json.RawMessage, error)

	// Delete removes a workflow's checkpoint. Deleting a missing
	// checkpoint is not an error.
	Delete(ctx context.Context, workflowID string) error
}

// FileStore keeps one JSON file per workflow under a base directory.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the base directory if needed.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		return nil, fmt.Errorf("checkpoint directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Save writes the checkpoint atomically via a temp file and rename.
func (s *FileStore) Save(ctx context.Context, workflowID string, state json.Marshaler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(workflowID)
	if err != nil {
		return err
	}

	data, err := state.MarshalJSON()
	if err != nil {
		return fmt.Errorf("serializing checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp checkpoint: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publishing checkpoint: %w", err)
	}

	s.logger.Debug("checkpoint saved",
		zap.String("workflow_id", workflowID),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Load returns the raw checkpoint document.
func (s *FileStore) Load(ctx context.Context, workflowID string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(workflowID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, workflowID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}
	return data, nil
}

// Delete removes the checkpoint file if present.
func (s *FileStore) Delete(ctx context.Context, workflowID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(workflowID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}

// path validates the workflow ID so a crafted ID cannot escape the base
// directory.
func (s *FileStore) path(workflowID string) (string, error) {
	if workflowID == "" || strings.ContainsAny(workflowID, `/\`) || strings.Contains(workflowID, "..") {
		return "", fmt.Errorf("invalid workflow id %q", workflowID)
	}
	return filepath.Join(s.dir, workflowID+".json"), nil
}
