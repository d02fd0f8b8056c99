package main

import (
	"fmt"

	"github.com/fwojciec/docsearch"
)

// Run executes the delete command.
func (c *DeleteCmd) Run(deps *Dependencies) error {
	if !c.Force {
		fmt.Fprintf(deps.Stderr, "error: use --force to confirm deletion\n")
		return docsearch.Errorf(docsearch.EINVALID, "use --force to confirm deletion")
	}

	sources, err := deps.Sources.FindSources(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docsearch.ErrorMessage(err))
		return err
	}

	var source *docsearch.Source
	for _, s := range sources {
		if s.Name == c.Name {
			source = s
			break
		}
	}
	if source == nil {
		fmt.Fprintf(deps.Stderr, "error: source %q not found. Use 'docsearch sources' to see available sources.\n", c.Name)
		return docsearch.Errorf(docsearch.ENOTFOUND, "source %q not found", c.Name)
	}

	if err := deps.Sources.DeleteSource(deps.Ctx, source.ID); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docsearch.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Deleted source %q (%s)\n", source.Name, source.BaseURL)
	return nil
}
