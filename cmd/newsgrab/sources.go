package main

import (
	"fmt"
	"text/tabwriter"
)

// Run executes the sources command.
func (c *SourcesCmd) Run(deps *Dependencies) error {
	tw := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSITE\tENABLED\tMAX AGE\tORDER\tDISCOVERY\tLISTING")
	for _, s := range deps.Sources {
		cfg := s.Config
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%s\t%s\t%s\n",
			cfg.Name, s.Site, cfg.Enabled, cfg.MaxAgeDays, orDefault(string(cfg.Order)), orDefault(string(cfg.Discovery)), cfg.ListingURL)
	}
	return tw.Flush()
}

func orDefault(s string) string {
	if s == "" {
		return "default"
	}
	return s
}
