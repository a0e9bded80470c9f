package sanitize

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Content limits for captured notes.
const (
	MaxContentSize = 1_000_000
	MaxTitleLength = 200
)

// Validation errors for security checks.
var (
	// ErrPathTraversal indicates a path contains directory traversal sequences.
	ErrPathTraversal = errors.New("path contains directory traversal")

	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrInvalidPackID indicates a pack ID is not a single safe path element.
	ErrInvalidPackID = errors.New("invalid pack ID")

	// ErrContentTooLarge indicates note content exceeds MaxContentSize.
	ErrContentTooLarge = errors.New("content too large")

	// ErrTitleTooLong indicates a title exceeds MaxTitleLength.
	ErrTitleTooLong = errors.New("title too long")
)

// packIDPattern allows alphanumeric names with dots, hyphens and underscores.
var packIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidatePath checks a path for security issues:
//   - No directory traversal (..)
//   - Resolves to absolute path and validates it stays within expected root
//   - Returns the cleaned, absolute path or an error
//
// If allowedRoot is empty, only traversal checks are performed.
func ValidatePath(path, allowedRoot string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}

	if strings.Contains(path, "..") {
		return "", fmt.Errorf("%w: contains '..'", ErrPathTraversal)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if allowedRoot != "" {
		absRoot, err := filepath.Abs(allowedRoot)
		if err != nil {
			return "", fmt.Errorf("failed to resolve allowed root: %w", err)
		}
		rel, err := filepath.Rel(absRoot, absPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: path escapes allowed root", ErrPathTraversal)
		}
	}

	return absPath, nil
}

// ValidatePackID checks that a pack ID can be used as a directory name
// under the packs root.
func ValidatePackID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPackID)
	}
	if len(id) > 255 {
		return fmt.Errorf("%w: too long (max 255)", ErrInvalidPackID)
	}
	if id == "." || id == ".." || strings.ContainsAny(id, "/\\\x00") {
		return fmt.Errorf("%w: %w", ErrInvalidPackID, ErrPathTraversal)
	}
	if !packIDPattern.MatchString(id) {
		return fmt.Errorf("%w: must be alphanumeric with dots, hyphens or underscores", ErrInvalidPackID)
	}
	if filepath.Clean(id) != id {
		return fmt.Errorf("%w: %w", ErrInvalidPackID, ErrPathTraversal)
	}
	return nil
}

// ValidateContent enforces MaxContentSize, counted in characters.
func ValidateContent(content string) error {
	if n := utf8.RuneCountInString(content); n > MaxContentSize {
		return fmt.Errorf("%w: %d characters (max: %d)", ErrContentTooLarge, n, MaxContentSize)
	}
	return nil
}

// ValidateTitle enforces MaxTitleLength, counted in characters.
func ValidateTitle(title string) error {
	if n := utf8.RuneCountInString(title); n > MaxTitleLength {
		return fmt.Errorf("%w: %d characters (max: %d)", ErrTitleTooLong, n, MaxTitleLength)
	}
	return nil
}
