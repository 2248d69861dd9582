package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/newsgrab"
)

// Run executes the parse-date command.
func (c *ParseDateCmd) Run(deps *Dependencies) error {
	t, err := deps.Dates.ParseDate(c.Text, newsgrab.Calendar(c.Calendar))
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", newsgrab.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "%s\n", t.UTC().Format(time.RFC3339))
	fmt.Fprintf(deps.Stdout, "day: %s\n", newsgrab.Day(t).Format(time.DateOnly))
	return nil
}
