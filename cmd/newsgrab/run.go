package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/ingest"
)

// Run executes the run command.
func (c *RunCmd) Run(deps *Dependencies) error {
	var results []*ingest.RunResult
	if c.Source != "" {
		res, err := deps.Ingester.RunSource(deps.Ctx, c.Source)
		if res == nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", newsgrab.ErrorMessage(err))
			return err
		}
		results = append(results, res)
	} else {
		results = deps.Ingester.RunAll(deps.Ctx).Results
	}

	if len(results) == 0 {
		fmt.Fprintln(deps.Stdout, "No enabled sources.")
		return nil
	}
	printResults(deps.Stdout, results)

	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("%d of %d sources failed", countFailed(results), len(results))
		}
	}
	return nil
}

func printResults(w io.Writer, results []*ingest.RunResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tFOUND\tSUBMITTED\tFAILED\tDUPLICATES\tSTATUS")
	total := 0
	for _, r := range results {
		status := "ok"
		switch {
		case r.Err != nil:
			status = "error: " + newsgrab.ErrorMessage(r.Err)
		case r.StoppedEarly:
			status = "stopped early"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n", r.Source, r.Found, r.Succeeded, r.Failed, r.Duplicates, status)
		total += r.Succeeded
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\nSubmitted %d articles\n", total)
}

func countFailed(results []*ingest.RunResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
