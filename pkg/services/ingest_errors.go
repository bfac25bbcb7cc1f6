package services

import (
	"errors"
	"fmt"

	"github.com/ranchforce/agriwebb-sync/pkg/agriwebb"
	"github.com/ranchforce/agriwebb-sync/pkg/models"
)

// MissingFieldError reports a payload without a natural key the mapper needs.
// Path uses the provider's field names, e.g. "identity.tags[1].id".
type MissingFieldError struct {
	Path string
}

func (e *MissingFieldError) Error() string {
	return "missing required field " + e.Path
}

// InvalidEnumError reports a value outside a provider choice set.
type InvalidEnumError struct {
	Path   string
	Value  string
	Choice string
}

func (e *InvalidEnumError) Error() string {
	return fmt.Sprintf("invalid %s %q at %s", e.Choice, e.Value, e.Path)
}

// requireID returns the id value or a MissingFieldError for path.
func requireID(id agriwebb.ID, path string) (string, error) {
	if !id.Set || id.Value == "" {
		return "", &MissingFieldError{Path: path}
	}
	return id.Value, nil
}

// optionalID returns nil for an absent or empty id.
func optionalID(id *agriwebb.ID) *string {
	if id == nil || !id.Set || id.Value == "" {
		return nil
	}
	v := id.Value
	return &v
}

// enumReader validates a run of optional enum fields and keeps the first
// failure, so callers check err once per entity.
type enumReader struct {
	err error
}

// read returns the canonical value, or nil for an absent or empty value.
func (r *enumReader) read(c models.Choices, path string, v *string) *string {
	if r.err != nil || v == nil || *v == "" {
		return nil
	}
	out, ok := c.Parse(*v)
	if !ok {
		r.err = &InvalidEnumError{Path: path, Value: *v, Choice: c.Name}
		return nil
	}
	return &out
}

// readOr is read with a default for absent values.
func (r *enumReader) readOr(c models.Choices, path string, v *string, def string) string {
	if out := r.read(c, path, v); out != nil {
		return *out
	}
	return def
}

func joinPath(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

func indexPath(prefix string, i int) string {
	return fmt.Sprintf("%s[%d]", prefix, i)
}

// withPathPrefix re-roots the path of a mapper error under prefix, so a job
// can report which record of a page failed. Other errors pass through.
func withPathPrefix(err error, prefix string) error {
	var missing *MissingFieldError
	if errors.As(err, &missing) {
		return &MissingFieldError{Path: joinPath(prefix, missing.Path)}
	}
	var invalid *InvalidEnumError
	if errors.As(err, &invalid) {
		return &InvalidEnumError{Path: joinPath(prefix, invalid.Path), Value: invalid.Value, Choice: invalid.Choice}
	}
	return err
}
