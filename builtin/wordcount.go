package builtin

import (
	"context"
	"fmt"
	"strings"

	"go-editor/plugin"
)

func init() {
	plugin.Register("wordcount", func(host plugin.Host) (plugin.Plugin, error) {
		return &WordCount{Base: plugin.NewBase(host)}, nil
	})
}

// WordCount prints the number of words in the buffer
type WordCount struct {
	plugin.Base
}

func (w *WordCount) Name() string { return "wordcount" }

func (w *WordCount) Manifest() *plugin.Manifest {
	return &plugin.Manifest{
		Name:        w.Name(),
		Version:     "1.0.0",
		Description: "Counts the words in the buffer",
		Source:      "builtin",
	}
}

func (w *WordCount) Run(context.Context) error {
	host := w.Host()
	_, err := fmt.Fprintf(host.Console(), "words: %d\n", len(strings.Fields(host.Text())))
	return err
}
