package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "List configured queries and sources",
	Long:  "Reads the config and prints a table of the search queries and the sources they run against.",
	RunE:  runQueries,
}

func init() {
	rootCmd.AddCommand(queriesCmd)
}

func runQueries(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%-30s %-20s %-8s %s\n", "Keywords", "Location", "Max age", "Limit")
	fmt.Fprintln(out, strings.Repeat("─", 68))
	for _, q := range cfg.Queries {
		loc := q.Location
		if loc == "" {
			loc = "-"
		}
		fmt.Fprintf(out, "%-30s %-20s %-8s %d\n", q.Keywords, loc, q.MaxAge, q.Limit)
	}

	fmt.Fprintf(out, "\n%-12s %s\n", "Source", "Boards")
	fmt.Fprintln(out, strings.Repeat("─", 40))
	if cfg.Sources.JSearch.Enabled {
		fmt.Fprintf(out, "%-12s %s\n", "jsearch", "-")
	}
	for _, b := range cfg.Sources.Greenhouse {
		fmt.Fprintf(out, "%-12s %s\n", "greenhouse", boardLabel(b.Token, b.Company))
	}
	for _, b := range cfg.Sources.Ashby {
		fmt.Fprintf(out, "%-12s %s\n", "ashby", boardLabel(b.Token, b.Company))
	}
	for _, b := range cfg.Sources.Lever {
		fmt.Fprintf(out, "%-12s %s\n", "lever", boardLabel(b.Token, b.Company))
	}

	fmt.Fprintf(out, "\nTotal: %d queries, schedule %q (%s), top %d via %s/%s\n",
		len(cfg.Queries), cfg.Schedule, cfg.Location, cfg.TopN, cfg.LLM.Provider, cfg.LLM.Model)
	return nil
}

func boardLabel(token, company string) string {
	if company == "" || strings.EqualFold(company, token) {
		return token
	}
	return fmt.Sprintf("%s (%s)", company, token)
}
