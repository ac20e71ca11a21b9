package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
)

// FileExporter writes snapshots below a local directory
type FileExporter struct {
	dir          string
	nameTemplate string
	now          func() time.Time
}

// NewFileExporter creates an exporter writing into dir
func NewFileExporter(dir, nameTemplate string) *FileExporter {
	if nameTemplate == "" {
		nameTemplate = "links-{timestamp}.jsonl"
	}
	return &FileExporter{dir: dir, nameTemplate: nameTemplate, now: time.Now}
}

// Export writes the snapshot atomically and returns its path
func (e *FileExporter) Export(ctx context.Context, links []entities.ContentLink) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := encode(links)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}

	path := filepath.Join(e.dir, expandKey(e.nameTemplate, e.now()))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("moving snapshot into place: %w", err)
	}
	return path, nil
}
