package registry

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
)

// Status is the result kind of a handler invocation
type Status int

const (
	StatusConverted Status = iota
	StatusUnsupported
	StatusMalformed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConverted:
		return "converted"
	case StatusUnsupported:
		return "unsupported"
	case StatusMalformed:
		return "malformed"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is what a handler reports back to the dispatcher.
type Outcome struct {
	Status Status
	Reason string
	Err    error
}

// Converted reports success; whatever the handler appended is kept.
func Converted() Outcome {
	return Outcome{Status: StatusConverted}
}

// Unsupported reports that the handler cannot represent this construct.
func Unsupported(format string, args ...any) Outcome {
	return Outcome{Status: StatusUnsupported, Reason: fmt.Sprintf(format, args...)}
}

// Malformed reports content that violates the shape the handler expects.
func Malformed(format string, args ...any) Outcome {
	return Outcome{Status: StatusMalformed, Reason: fmt.Sprintf(format, args...)}
}

// Propagate hands a fatal error from a nested dispatch back to the caller
// unchanged.
func Propagate(err error) Outcome {
	return Outcome{Status: StatusFailed, Err: err, Reason: err.Error()}
}

// OK reports whether the outcome is Converted
func (o Outcome) OK() bool {
	return o.Status == StatusConverted
}

// Handler converts one XML subtree into output appended to out.
type Handler interface {
	Convert(d *Dispatcher, el *etree.Element, out *model.Seq) Outcome
}

// HandlerFunc adapts a stateless conversion routine to Handler.
type HandlerFunc func(el *etree.Element, out *model.Seq) Outcome

// Convert calls f
func (f HandlerFunc) Convert(_ *Dispatcher, el *etree.Element, out *model.Seq) Outcome {
	return f(el, out)
}

// TranslatorFunc adapts a routine that dispatches nested elements itself.
type TranslatorFunc func(d *Dispatcher, el *etree.Element, out *model.Seq) Outcome

// Convert calls f
func (f TranslatorFunc) Convert(d *Dispatcher, el *etree.Element, out *model.Seq) Outcome {
	return f(d, el, out)
}
