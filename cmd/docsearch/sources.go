package main

import (
	"fmt"

	"github.com/fwojciec/docsearch"
)

// Run executes the sources command.
func (c *SourcesCmd) Run(deps *Dependencies) error {
	sources, err := deps.Tools.ListSources(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docsearch.ErrorMessage(err))
		return err
	}

	if len(sources) == 0 {
		fmt.Fprintln(deps.Stdout, "No documentation sources found. Use 'docsearch fetch <url> <name>' to add one.")
		return nil
	}
	return writeJSON(deps.Stdout, sources)
}
