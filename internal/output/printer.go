package output

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/516hackers/osint516/internal/presence"
	"github.com/516hackers/osint516/internal/probe"
)

type Printer struct {
	noColor bool
	out     io.Writer
	logger  *log.Logger
}

func NewPrinter(stdout io.Writer, noColor bool) *Printer {
	return &Printer{
		noColor: noColor,
		out:     stdout,
		logger:  log.New(stdout, "", 0),
	}
}

func (p *Printer) Writer() io.Writer { return p.out }

func (p *Printer) Banner(title string) {
	p.logger.Printf("%s", title)
	p.logger.Print(strings.Repeat("=", 60))
}

// Outcome prints one per-platform line as soon as a probe settles.
func (p *Printer) Outcome(o probe.Outcome) {
	switch {
	case o.Exists:
		if p.noColor {
			p.logger.Printf("[%s] %s: %s", "+", o.Platform, o.URL)
		} else {
			p.logger.Printf("[%s] %s: %s", color.HiGreenString("+"), color.HiWhiteString(o.Platform), o.URL)
		}
	case o.Err != nil:
		if p.noColor {
			p.logger.Printf("[%s] %s: ERROR: %s", "!", o.Platform, o.Err.Error())
		} else {
			p.logger.Printf("[%s] %s: %s: %s",
				color.HiRedString("!"),
				o.Platform,
				color.HiMagentaString("ERROR"),
				color.HiRedString(o.Err.Error()),
			)
		}
	default:
		msg := "Not found"
		if o.Skipped {
			msg = "Skipped (username not valid here)"
		}
		if p.noColor {
			p.logger.Printf("[%s] %s: %s", "-", o.Platform, msg)
		} else {
			p.logger.Printf("[%s] %s: %s", color.HiRedString("-"), o.Platform, color.HiYellowString(msg))
		}
	}
}

// PresenceReport renders the human-readable summary of a social map.
func (p *Printer) PresenceReport(r presence.Report) {
	p.logger.Print("")
	p.logger.Print("516 Hackers - Social Media Presence Report")
	p.logger.Print(strings.Repeat("=", 43))
	p.logger.Printf("Target Username: %s", r.Username)
	p.logger.Printf("Analysis Date: %s", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	p.logger.Print("")
	p.logger.Printf("Platforms Checked: %d", r.Summary.Checked)
	p.logger.Printf("Platforms Found: %d", r.Summary.Found)
	if p.noColor {
		p.logger.Printf("Discovery Rate: %s%%", formatRate(r.Summary.DiscoveryRate))
	} else {
		p.logger.Printf("Discovery Rate: %s", color.HiCyanString(formatRate(r.Summary.DiscoveryRate)+"%"))
	}
	p.logger.Print("")

	rows := make([][]string, 0, len(r.Platforms))
	for _, e := range r.Platforms {
		status := "NOT FOUND"
		if e.Exists {
			status = "FOUND"
		} else if e.ErrorKind != "" {
			status = "ERROR (" + string(e.ErrorKind) + ")"
		}
		rt := "-"
		if e.ResponseTime != nil {
			rt = fmt.Sprintf("%.2fs", *e.ResponseTime)
		}
		rows = append(rows, []string{strings.ToUpper(e.Platform), status, e.URL, rt})
	}
	p.Table([]string{"Platform", "Status", "URL", "Response Time"}, rows)
}

// SearchSummary renders the plain-text report of the username search tool.
func (p *Printer) SearchSummary(r presence.Report) {
	p.logger.Print("")
	p.logger.Print("516 Hackers - OSINT Report")
	p.logger.Print(strings.Repeat("=", 26))
	p.logger.Printf("Username: %s", r.Username)
	p.logger.Printf("Date: %s", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	p.logger.Printf("Found Profiles: %d", r.Summary.Found)
	p.logger.Print("")
	p.logger.Print("Platforms Checked:")

	var found []string
	for _, e := range r.Platforms {
		p.logger.Printf("- %s: %s", e.Platform, presence.StatusOf(e))
		if e.Exists {
			found = append(found, e.Platform)
		}
	}

	p.logger.Print("")
	if len(found) == 0 {
		p.logger.Print("Found on: None")
	} else {
		p.logger.Printf("Found on: %s", strings.Join(found, ", "))
	}
}

// Table renders rows with a header; used by every tool's summary.
func (p *Printer) Table(header []string, rows [][]string) {
	table := tablewriter.NewWriter(p.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
}

func (p *Printer) Info(format string, args ...any) {
	p.tagged("i", color.HiBlueString, format, args...)
}

func (p *Printer) Success(format string, args ...any) {
	p.tagged("+", color.HiGreenString, format, args...)
}

func (p *Printer) Warn(format string, args ...any) {
	p.tagged("!", color.HiRedString, format, args...)
}

// Saved reports where a result file was written.
func (p *Printer) Saved(path string) {
	if p.noColor {
		p.logger.Printf("Results saved to: %s", path)
	} else {
		p.logger.Printf("Results saved to: %s", color.HiWhiteString(path))
	}
}

func (p *Printer) Line(format string, args ...any) {
	p.logger.Printf(format, args...)
}

func (p *Printer) tagged(tag string, paint func(string, ...any) string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.noColor {
		p.logger.Printf("[%s] %s", tag, msg)
		return
	}
	p.logger.Printf("[%s] %s", paint(tag), msg)
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
