package main

import (
	"fmt"

	"github.com/fwojciec/docsearch"
	"github.com/fwojciec/docsearch/tools"
)

// Run executes the page command.
func (c *PageCmd) Run(deps *Dependencies) error {
	content, err := deps.Tools.GetPage(deps.Ctx, tools.GetPageInput{URL: c.URL, PageID: c.ID})
	if err != nil {
		if docsearch.ErrorCode(err) == docsearch.ENOTFOUND {
			fmt.Fprintln(deps.Stderr, "error: page not found")
			return err
		}
		fmt.Fprintf(deps.Stderr, "error: %s\n", docsearch.ErrorMessage(err))
		return err
	}

	fmt.Fprintln(deps.Stdout, content)
	return nil
}
