package files

import (
	"errors"
	"fmt"
)

var (
	FileNotFoundErr    = errors.New("file not found")
	InvalidFileTypeErr = errors.New("invalid file format")
	FileTooLargeErr    = errors.New("file exceeds maximum size")
	EmptyFilenameErr   = errors.New("no filename provided")
)

// UnsafeFileError is returned when the security check rejects an upload.
// It carries the assessment so callers can surface the details.
type UnsafeFileError struct {
	Threats         []string
	Recommendations []string
	RiskScore       float64
}

func (e *UnsafeFileError) Error() string {
	return fmt.Sprintf("file flagged by security analysis (risk %.1f)", e.RiskScore)
}
