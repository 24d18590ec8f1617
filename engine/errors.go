package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrSchema is matched by every *SchemaError via errors.Is.
var ErrSchema = errors.New("schema error")

// SchemaError reports columns a stage needs that the record set lacks, or
// has with the wrong kind. It halts the run.
type SchemaError struct {
	Profile string   // profile being resolved, empty outside detection
	Missing []string // offending column names, in the order they were checked
	Err     error    // accumulated detail
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema error")
	if e.Profile != "" {
		fmt.Fprintf(&b, " (%s)", e.Profile)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing columns %s", strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		if merr, ok := e.Err.(*multierror.Error); ok {
			for _, one := range merr.Errors {
				fmt.Fprintf(&b, "; %v", one)
			}
		} else {
			fmt.Fprintf(&b, "; %v", e.Err)
		}
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error { return e.Err }

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// requireColumns checks that every key exists in view with the given kind.
// All problems are collected into one SchemaError.
func requireColumns(view RecordView, kind Kind, keys ...string) error {
	var (
		missing []string
		merr    *multierror.Error
	)
	for _, key := range keys {
		got, ok := KindOf(view, key)
		switch {
		case !ok:
			missing = append(missing, key)
			merr = multierror.Append(merr, fmt.Errorf("column %q not found", key))
		case got != kind:
			missing = append(missing, key)
			merr = multierror.Append(merr, fmt.Errorf("column %q is a %s, expected %s", key, got, kind))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &SchemaError{Missing: missing, Err: merr.ErrorOrNil()}
}

func joinErrors(errs []error) error {
	var merr *multierror.Error
	for _, err := range errs {
		if inner, ok := err.(*multierror.Error); ok {
			merr = multierror.Append(merr, inner.Errors...)
			continue
		}
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}
