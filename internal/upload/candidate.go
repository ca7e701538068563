package upload

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions are the accepted spreadsheet extensions.
var DefaultExtensions = []string{"xlsx", "xls"}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// IsAllowedExtension reports whether name ends in one of allowed
// (case-insensitive). A nil allowed list means DefaultExtensions.
func IsAllowedExtension(name string, allowed []string) bool {
	if allowed == nil {
		allowed = DefaultExtensions
	}
	ext := Extension(name)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}

// Candidate is a file offered for selection. Open is called once per submit.
type Candidate struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FileCandidate offers a file on disk.
func FileCandidate(path string) (Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// BytesCandidate offers an in-memory file.
func BytesCandidate(name string, data []byte) Candidate {
	return Candidate{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
