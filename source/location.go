// Package source turns a location string into an engine.Frame. It reads
// local files and S3 objects, decodes CSV and Parquet, and keeps loaded
// frames in a Cache until they are explicitly reloaded.
package source

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Scheme is where a location lives.
type Scheme string

const (
	SchemeFile Scheme = "file"
	SchemeS3   Scheme = "s3"
)

// Format is the decoder a location is read with.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// Location is a parsed, canonical source address.
type Location struct {
	Scheme Scheme
	Path   string // absolute path for SchemeFile
	Bucket string // SchemeS3 only
	Key    string // SchemeS3 only
}

// ParseLocation parses "s3://bucket/key" or a filesystem path. Relative
// paths are resolved against the working directory, so the same string
// always names the same file for the life of the process.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("empty source location")
	}

	if rest, ok := strings.CutPrefix(raw, "s3://"); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return Location{}, fmt.Errorf("invalid s3 location %q: want s3://bucket/key", raw)
		}
		return Location{Scheme: SchemeS3, Bucket: bucket, Key: key}, nil
	}

	path, err := filepath.Abs(raw)
	if err != nil {
		return Location{}, fmt.Errorf("failed to resolve %q: %w", raw, err)
	}
	return Location{Scheme: SchemeFile, Path: path}, nil
}

// String is the canonical form, used as the cache key.
func (l Location) String() string {
	if l.Scheme == SchemeS3 {
		return "s3://" + l.Bucket + "/" + l.Key
	}
	return l.Path
}

// Format picks the decoder from the file extension.
func (l Location) Format() Format {
	name := l.Path
	if l.Scheme == SchemeS3 {
		name = l.Key
	}
	if strings.EqualFold(filepath.Ext(name), ".parquet") {
		return FormatParquet
	}
	return FormatCSV
}

// Base is the file name without directories.
func (l Location) Base() string {
	if l.Scheme == SchemeS3 {
		return filepath.Base(l.Key)
	}
	return filepath.Base(l.Path)
}
