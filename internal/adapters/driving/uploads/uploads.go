// Package uploads turns local file paths into uploaded files for the
// driving adapters.
package uploads

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/docportal/internal/core/domain"
)

// ReadFiles reads each path into an UploadedFile named by its base name.
// Directories are rejected.
func ReadFiles(paths ...string) ([]domain.UploadedFile, error) {
	files := make([]domain.UploadedFile, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", domain.ErrValidation, path)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		files = append(files, domain.UploadedFile{
			Name:    filepath.Base(path),
			Content: content,
		})
	}
	return files, nil
}

// ReadFile reads a single path.
func ReadFile(path string) (domain.UploadedFile, error) {
	files, err := ReadFiles(path)
	if err != nil {
		return domain.UploadedFile{}, err
	}
	return files[0], nil
}
