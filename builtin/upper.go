package builtin

import (
	"context"
	"strings"

	"go-editor/plugin"
)

func init() {
	plugin.Register("upper", func(host plugin.Host) (plugin.Plugin, error) {
		return &Upper{Base: plugin.NewBase(host)}, nil
	})
}

// Upper upper-cases the buffer in place
type Upper struct {
	plugin.Base
}

func (u *Upper) Name() string { return "upper" }

func (u *Upper) Manifest() *plugin.Manifest {
	return &plugin.Manifest{
		Name:        u.Name(),
		Version:     "1.0.0",
		Description: "Upper-cases the buffer",
		Source:      "builtin",
	}
}

func (u *Upper) Run(context.Context) error {
	host := u.Host()
	host.SetText(strings.ToUpper(host.Text()))
	return nil
}
