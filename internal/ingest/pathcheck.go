package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePath checks that inputPath resolves inside allowedBaseDir.
// Symlinks are resolved on both sides before comparing.
func ValidatePath(inputPath, allowedBaseDir string) (string, error) {
	absInput, err := filepath.Abs(inputPath)
	if err != nil {
		return "", fmt.Errorf("invalid input path: %w", err)
	}

	absBase, err := filepath.Abs(allowedBaseDir)
	if err != nil {
		return "", fmt.Errorf("invalid base directory: %w", err)
	}

	resolvedInput, err := filepath.EvalSymlinks(absInput)
	if err != nil {
		return "", fmt.Errorf("cannot resolve input path: %w", err)
	}

	resolvedBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		return "", fmt.Errorf("cannot resolve base directory: %w", err)
	}

	rel, err := filepath.Rel(resolvedBase, resolvedInput)
	if err != nil {
		return "", fmt.Errorf("cannot compute relative path: %w", err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s", rel)
	}

	return resolvedInput, nil
}

// ValidatePathExists checks that the path exists and is a regular file
func ValidatePathExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	return nil
}

// ResolveFilePath joins a relative biometric path onto baseDir.
// Absolute paths and an empty baseDir leave the path unchanged.
func ResolveFilePath(path, baseDir string) string {
	if baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
