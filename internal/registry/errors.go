package registry

import (
	"errors"
	"fmt"
)

// UnsupportedTagError is returned when a fatal component meets a tag it has no
// handler for, or whose handler declined it.
type UnsupportedTagError struct {
	Component string
	Tag       string
	Reason    string
}

func (e *UnsupportedTagError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("no handler for <%s> in component %q", e.Tag, e.Component)
	}
	return fmt.Sprintf("cannot convert <%s> in component %q: %s", e.Tag, e.Component, e.Reason)
}

// MalformedConstructError is returned when a handler recognized a tag but
// its content breaks the shape the handler relies on.
type MalformedConstructError struct {
	Component string
	Tag       string
	Reason    string
}

func (e *MalformedConstructError) Error() string {
	return fmt.Sprintf("malformed <%s> in component %q: %s", e.Tag, e.Component, e.Reason)
}

// AmbiguousHandlerError means an element's tag and class attribute resolve to
// two different handlers of one component.
type AmbiguousHandlerError struct {
	Component string
	Tag       string
	TagKey    string
	ClassKey  string
}

func (e *AmbiguousHandlerError) Error() string {
	return fmt.Sprintf("ambiguous handler for <%s> in component %q: tag key %q and class key %q are both registered",
		e.Tag, e.Component, e.TagKey, e.ClassKey)
}

// CollisionError reports two contributions claiming the same key.
type CollisionError struct {
	Component string
	Key       string
	Existing  string
	Incoming  string
}

func (e *CollisionError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("project kind for %q registered by both %q and %q", e.Key, e.Existing, e.Incoming)
	}
	return fmt.Sprintf("handler %q in component %q registered by both %q and %q", e.Key, e.Component, e.Existing, e.Incoming)
}

// IsCollision reports whether err is or wraps a *CollisionError
func IsCollision(err error) bool {
	var target *CollisionError
	return errors.As(err, &target)
}

// IsConversionError reports whether err stopped a job because some part of
// it could not be translated.
func IsConversionError(err error) bool {
	var (
		unsupported *UnsupportedTagError
		malformed   *MalformedConstructError
		ambiguous   *AmbiguousHandlerError
	)
	return errors.As(err, &unsupported) || errors.As(err, &malformed) || errors.As(err, &ambiguous)
}
