package main

import (
	"fmt"

	"github.com/fwojciec/docsearch"
	"github.com/fwojciec/docsearch/tools"
)

// Run executes the fetch command. It starts the crawl, prints the job that
// was created or is already running, then blocks until background crawls
// finish and prints the job's final state.
func (c *FetchCmd) Run(deps *Dependencies) error {
	in := tools.FetchDocumentationInput{
		URL:             c.URL,
		Name:            c.Name,
		IncludePatterns: c.Include,
		ExcludePatterns: c.Exclude,
	}
	if c.MaxPages != 0 {
		in.MaxPages = &c.MaxPages
	}

	out, err := deps.Tools.FetchDocumentation(deps.Ctx, in)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docsearch.ErrorMessage(err))
		return err
	}
	if err := writeJSON(deps.Stdout, out); err != nil {
		return err
	}

	if deps.Crawls == nil {
		return nil
	}
	deps.Crawls.Wait()

	job, err := deps.Jobs.FindJobByID(deps.Ctx, out.JobID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docsearch.ErrorMessage(err))
		return err
	}
	if err := writeJSON(deps.Stdout, job); err != nil {
		return err
	}
	if job.Status == docsearch.JobFailed {
		return docsearch.Errorf(docsearch.EINTERNAL, "crawl %s failed: %s", job.ID, job.Error)
	}
	return nil
}
