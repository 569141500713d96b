package forum

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMethodNotImplemented is returned by Update and Submit for a method
	// name the entity does not support.
	ErrMethodNotImplemented = errors.New("method not implemented")
	// ErrMessageNotInPage is returned when the page a message link resolves
	// to does not contain the message.
	ErrMessageNotInPage = errors.New("requested post doesn't exist in page")
	// ErrUnknownGender is returned by SubmitProfile for a gender the profile
	// form has no option for.
	ErrUnknownGender = errors.New("unknown gender")
)

// IncompleteError reports the fields an operation needed but found unset.
type IncompleteError struct {
	Fields []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("missing fields: %s", strings.Join(e.Fields, ", "))
}

// field is a name paired with whether it is set.
type field struct {
	name string
	set  bool
}

func requireFields(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if !f.set {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &IncompleteError{Fields: missing}
	}
	return nil
}

func notImplemented(entity, method string) error {
	return fmt.Errorf("%s: %q: %w", entity, method, ErrMethodNotImplemented)
}
