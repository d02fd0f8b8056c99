package main

import (
	"fmt"

	"github.com/fwojciec/docsearch"
)

// Run executes the migrate command.
func (c *MigrateCmd) Run(deps *Dependencies) error {
	if err := deps.Migrator.Migrate(deps.Ctx, deps.EmbeddingDim); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docsearch.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Schema ready (embedding dimensions: %d)\n", deps.EmbeddingDim)
	return nil
}
