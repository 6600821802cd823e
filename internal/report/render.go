package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Render writes the grouped error report to w. All entries are included
// regardless of outcome; an empty collector renders a single success line.
func Render(w io.Writer, c *Collector) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if warnings := c.Warnings(); len(warnings) > 0 {
		fmt.Fprintf(w, "\n%s (%d)\n", yellow("Warnings"), len(warnings))
		for _, e := range warnings {
			fmt.Fprintf(w, "  [%s] %s", e.Source, e.Message)
			if e.Context != "" {
				fmt.Fprintf(w, " (%s)", e.Context)
			}
			fmt.Fprintln(w)
		}
	}

	if !c.HasErrors() {
		fmt.Fprintf(w, "\n%s\n", green("No errors recorded."))
		return
	}

	order, groups := c.Grouped()
	fmt.Fprintf(w, "\n%s (%d)\n", red("Errors"), c.Count())
	for _, src := range order {
		fmt.Fprintf(w, "  %s:\n", src)
		for _, e := range groups[src] {
			fmt.Fprintf(w, "    %s  %s", e.Time.Format("15:04:05"), e.Message)
			if e.Context != "" {
				fmt.Fprintf(w, " (%s)", e.Context)
			}
			fmt.Fprintln(w)
		}
	}
}
