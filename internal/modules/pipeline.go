package modules

import (
	"github.com/beevik/etree"

	"github.com/sourceplane/jobwrecker/internal/model"
	"github.com/sourceplane/jobwrecker/internal/registry"
)

// definitionTranslator flattens a pipeline <definition> onto the job: inline
// scripts become script/sandbox, SCM-backed ones become scm/script-path.
type definitionTranslator struct{}

func (definitionTranslator) Convert(d *registry.Dispatcher, el *etree.Element, out *model.Seq) registry.Outcome {
	return InlineTranslator{Component: Definition}.Convert(d, el, out)
}

func registerDefinition(b *registry.Builder) error {
	for tag, fn := range map[string]registry.HandlerFunc{
		"script":      textField("script"),
		"scriptpath":  textField("script-path"),
		"sandbox":     boolField("sandbox"),
		"lightweight": boolField("lightweight-checkout"),
	} {
		if err := b.RegisterFunc(Definition, tag, fn); err != nil {
			return err
		}
	}
	return b.Register(Definition, "scm", scmTranslator{})
}
