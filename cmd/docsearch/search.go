package main

import (
	"fmt"

	"github.com/fwojciec/docsearch"
	"github.com/fwojciec/docsearch/tools"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	hits, err := deps.Tools.SearchDocumentation(deps.Ctx, tools.SearchInput{
		Query:     c.Query,
		SourceID:  c.Source,
		Limit:     c.Limit,
		Threshold: c.Threshold,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docsearch.ErrorMessage(err))
		return err
	}

	if len(hits) == 0 {
		fmt.Fprintln(deps.Stdout, "No results found for your query.")
		return nil
	}
	return writeJSON(deps.Stdout, hits)
}
