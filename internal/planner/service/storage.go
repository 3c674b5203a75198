package service

import (
	"fmt"
	"os"
	"path/filepath"
)

// ============================================================
// File Storage
// ============================================================

// FileStorage хранит файлы плана на диске: исходный SVG импорта и последний рендер.
type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) PlanDir(planID string) string {
	return filepath.Join(s.root, planID)
}

func (s *FileStorage) SourcePath(planID string) string {
	return filepath.Join(s.PlanDir(planID), "source.svg")
}

func (s *FileStorage) RenderPath(planID string) string {
	return filepath.Join(s.PlanDir(planID), "render.svg")
}

func (s *FileStorage) EnsureDir(planID string) error {
	path := s.PlanDir(planID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir plan dir: %w", err)
	}
	return nil
}

func (s *FileStorage) WriteSource(planID string, data []byte) error {
	return s.write(planID, s.SourcePath(planID), data)
}

func (s *FileStorage) WriteRender(planID string, data []byte) error {
	return s.write(planID, s.RenderPath(planID), data)
}

func (s *FileStorage) ReadSource(planID string) ([]byte, error) {
	return os.ReadFile(s.SourcePath(planID))
}

func (s *FileStorage) ReadRender(planID string) ([]byte, error) {
	return os.ReadFile(s.RenderPath(planID))
}

func (s *FileStorage) write(planID, path string, data []byte) error {
	if err := s.EnsureDir(planID); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
