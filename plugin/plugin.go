package plugin

import (
	"context"
	"errors"
	"io"
)

// ErrNotImplemented is returned by Base.Run. Concrete plugins must override Run.
var ErrNotImplemented = errors.New("plugin must implement the Run method")

// Plugin is the contract every plugin satisfies
type Plugin interface {
	Name() string
	Run(ctx context.Context) error
}

// Host is the view of the editor that plugins receive on construction.
// Plugins hold it as a non-owning reference.
type Host interface {
	Text() string
	SetText(text string)
	Console() io.Writer
}

// BaseName is the placeholder name of the abstract base
const BaseName = "base"

// Base provides the host back-reference and a Run that always fails.
// Embed it and override Name and Run.
type Base struct {
	host Host
}

// NewBase stores the host reference
func NewBase(host Host) Base {
	return Base{host: host}
}

// Host returns the editor this plugin was constructed for
func (b Base) Host() Host { return b.host }

func (b Base) Name() string { return BaseName }

func (b Base) Run(context.Context) error { return ErrNotImplemented }
