package runner

import (
	"errors"
	"strings"
)

// ErrMalformedOutput marks a zero-exit worker whose stdout does not satisfy
// its contract. Callers treat it the same as a non-zero exit.
var ErrMalformedOutput = errors.New("malformed worker output")

// ParseImageOutput splits "<filePath>:<seed>" on the last colon. File paths
// may themselves contain colons, so the seed is the final segment and the
// remainder is rejoined as the path.
func ParseImageOutput(raw string) (filePath, seed string, err error) {
	raw = strings.TrimSpace(raw)
	idx := strings.LastIndex(raw, ":")
	if idx < 0 {
		return "", "", ErrMalformedOutput
	}
	filePath = raw[:idx]
	seed = strings.TrimSpace(raw[idx+1:])
	if filePath == "" || seed == "" {
		return "", "", ErrMalformedOutput
	}
	return filePath, seed, nil
}

// ParsePathOutput handles video and story workers, whose stdout on success is
// just the produced file path.
func ParsePathOutput(raw string) (string, error) {
	path := strings.TrimSpace(raw)
	if path == "" {
		return "", ErrMalformedOutput
	}
	return path, nil
}
