package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// WriteText renders the report for humans.
func WriteText(w io.Writer, r *Report) error {
	var b bytes.Buffer

	fmt.Fprintln(&b, r.Metadata.Title)
	fmt.Fprintln(&b, strings.Repeat("=", len(r.Metadata.Title)))
	fmt.Fprintf(&b, "Generated by: %s v%s\n", r.Metadata.GeneratedBy, r.Metadata.Version)
	fmt.Fprintf(&b, "Generated at: %s\n\n", r.Metadata.Timestamp.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(&b, "EXECUTIVE SUMMARY")
	fmt.Fprintf(&b, "Data sources: %d\n", r.Summary.TotalSources)
	fmt.Fprintf(&b, "Risk assessment: %s\n\n", r.Summary.RiskAssessment)

	table := tablewriter.NewWriter(&b)
	table.SetHeader([]string{"Tool", "Source File"})
	table.SetAutoWrapText(false)
	for _, tool := range r.Summary.ToolsUsed {
		table.Append([]string{tool, r.Files[tool]})
	}
	table.Render()

	section(&b, "KEY FINDINGS", r.Summary.KeyFindings)
	section(&b, "RECOMMENDATIONS", r.Recommendations)

	_, err := w.Write(b.Bytes())
	return err
}

func section(b *bytes.Buffer, title string, items []string) {
	fmt.Fprintf(b, "\n%s\n", title)
	if len(items) == 0 {
		fmt.Fprintln(b, "  (none)")
		return
	}
	for _, it := range items {
		fmt.Fprintf(b, "  - %s\n", it)
	}
}
