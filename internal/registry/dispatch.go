package registry

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/xmltree"
)

// Escape records a subtree that was kept verbatim instead of converted.
type Escape struct {
	Component string `json:"component" yaml:"component"`
	Tag       string `json:"tag" yaml:"tag"`
	Reason    string `json:"reason" yaml:"reason"`
}

// Skip records a tag dropped from a fatal component on request.
type Skip struct {
	Component string `json:"component" yaml:"component"`
	Tag       string `json:"tag" yaml:"tag"`
	Reason    string `json:"reason" yaml:"reason"`
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithSkipTags turns failures of the given tags in fatal components into a
// warning. Tags are normalized before matching.
func WithSkipTags(tags ...string) Option {
	return func(d *Dispatcher) {
		for _, tag := range tags {
			d.skip[xmltree.Normalize(tag)] = true
		}
	}
}

// Dispatcher routes elements to handlers for the translation of one job.
// It is not safe for concurrent use; create one per job.
type Dispatcher struct {
	ctx      context.Context
	registry *Registry
	logger   ectologger.Logger
	skip     map[string]bool
	escapes  []Escape
	skipped  []Skip
}

// NewDispatcher creates a dispatcher over an immutable registry
func NewDispatcher(ctx context.Context, reg *Registry, logger ectologger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ctx:      ctx,
		registry: reg,
		logger:   logger,
		skip:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher resolves against
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Context returns the context of the translation
func (d *Dispatcher) Context() context.Context {
	return d.ctx
}

// Escapes returns the subtrees kept verbatim so far, in document order
func (d *Dispatcher) Escapes() []Escape {
	return append([]Escape(nil), d.escapes...)
}

// Skipped returns the tags dropped by WithSkipTags so far
func (d *Dispatcher) Skipped() []Skip {
	return append([]Skip(nil), d.skipped...)
}

// Dispatch resolves the handler for el within component and runs it. The
// handler writes into a scratch sequence that is only appended to out when
// it reports Converted. A failure either comes back as an error (fatal
// components) or leaves a model.Raw entry in out (everything else).
func (d *Dispatcher) Dispatch(componentName string, el *etree.Element, out *model.Seq) error {
	spec, ok := d.registry.Component(componentName)
	if !ok {
		return fmt.Errorf("unknown component %q", componentName)
	}

	h, key, err := d.registry.Resolve(componentName, el)
	if err != nil {
		return d.fail(spec, el, key, StatusMalformed, err.Error(), err, out)
	}
	if h == nil {
		return d.fail(spec, el, key, StatusUnsupported, "", nil, out)
	}

	return d.run(spec, h, key, el, out)
}

// DispatchKey runs the handler registered under an explicit key, bypassing
// tag normalization. The fallback policy is the same as Dispatch.
func (d *Dispatcher) DispatchKey(componentName, key string, el *etree.Element, out *model.Seq) error {
	spec, ok := d.registry.Component(componentName)
	if !ok {
		return fmt.Errorf("unknown component %q", componentName)
	}

	h, ok := d.registry.Lookup(componentName, key)
	if !ok {
		return d.fail(spec, el, key, StatusUnsupported, "", nil, out)
	}
	return d.run(spec, h, key, el, out)
}

func (d *Dispatcher) run(spec ComponentSpec, h Handler, key string, el *etree.Element, out *model.Seq) error {
	scratch := &model.Seq{}
	outcome := h.Convert(d, el, scratch)

	switch outcome.Status {
	case StatusConverted:
		out.Append(scratch.Items()...)
		return nil
	case StatusFailed:
		return outcome.Err
	default:
		return d.fail(spec, el, key, outcome.Status, outcome.Reason, nil, out)
	}
}

// fail applies the fallback policy of the component to an element that could
// not be converted.
func (d *Dispatcher) fail(spec ComponentSpec, el *etree.Element, key string, status Status, reason string, cause error, out *model.Seq) error {
	if spec.Escalation == Degrade {
		return d.degrade(spec, el, out, reason)
	}

	if d.skip[key] || d.skip[xmltree.TagKey(el)] {
		d.logger.WithContext(d.ctx).WithFields(map[string]any{
			"component": spec.Name,
			"tag":       el.Tag,
			"reason":    reason,
		}).Warn("Skipping element as requested")
		d.skipped = append(d.skipped, Skip{Component: spec.Name, Tag: el.Tag, Reason: reason})
		return nil
	}

	switch {
	case cause != nil:
		return cause
	case status == StatusMalformed:
		return &MalformedConstructError{Component: spec.Name, Tag: el.Tag, Reason: reason}
	default:
		return &UnsupportedTagError{Component: spec.Name, Tag: el.Tag, Reason: reason}
	}
}

func (d *Dispatcher) degrade(spec ComponentSpec, el *etree.Element, out *model.Seq, reason string) error {
	raw, err := xmltree.Serialize(el)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "no handler registered"
	}

	out.Append(model.Raw{XML: raw})
	d.escapes = append(d.escapes, Escape{Component: spec.Name, Tag: el.Tag, Reason: reason})
	d.logger.WithContext(d.ctx).WithFields(map[string]any{
		"component": spec.Name,
		"tag":       el.Tag,
		"reason":    reason,
	}).Warn("Keeping element as raw XML")
	return nil
}
