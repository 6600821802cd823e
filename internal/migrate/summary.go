package migrate

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Render writes the per-table results and run totals to w as a
// human-readable table.
func (s Summary) Render(w io.Writer) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Table", "Strategy", "Rows", "Inserted", "Skipped", "Errors", "Duration", "Status"})

	for _, r := range s.Results {
		status := green("ok")
		switch {
		case r.Errors > 0:
			status = red("failed")
		case r.SkippedTable:
			status = yellow("skipped")
		}
		table.Append([]string{
			r.Table,
			string(r.Strategy),
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Inserted),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Errors),
			r.Duration.Round(time.Millisecond).String(),
			status,
		})
	}
	table.Render()

	overall := green("SUCCESS")
	if !s.Success {
		overall = red("FAILED")
	}
	fmt.Fprintf(w, "\n%s  tables=%d inserted=%d skipped=%d duration=%s\n",
		overall, s.TablesProcessed, s.TotalInserted, s.TotalSkipped, s.Duration.Round(time.Millisecond))
}
