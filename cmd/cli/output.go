package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
)

var tierColor = map[string]*color.Color{
	"fast":    color.New(color.FgGreen, color.Bold),
	"healthy": color.New(color.FgGreen, color.Bold),
	"fair":    color.New(color.FgCyan),
	"slow":    color.New(color.FgYellow),
	"timeout": color.New(color.FgMagenta),
	"error":   color.New(color.FgRed, color.Bold),
}

func paint(tier string) string {
	if c, ok := tierColor[tier]; ok {
		return c.Sprint(tier)
	}
	return tier
}

func printTable(out io.Writer, rows []row) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tLATENCY\tMETHOD\tURL\tERROR")
	for _, r := range rows {
		name := r.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%dms\t%s\t%s\t%s\n", name, paint(r.Status), r.ResponseTime, r.Method, r.URL, r.Error)
	}
	_ = tw.Flush()
}

func printSummary(out io.Writer, env *envelope) {
	tiers := make([]string, 0, len(env.Stats))
	for k := range env.Stats {
		if k != "total" {
			tiers = append(tiers, k)
		}
	}
	sort.Strings(tiers)

	fmt.Fprintf(out, "\n%d mirrors:", env.Stats["total"])
	for _, t := range tiers {
		fmt.Fprintf(out, " %s=%d", paint(t), env.Stats[t])
	}
	cache := "fresh"
	if env.Cached {
		cache = "cached"
	}
	fmt.Fprintf(out, "\nchecked in %dms (%s) at %s\n", env.CheckTimeMS, cache, env.Timestamp)
}
