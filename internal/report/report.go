// Package report merges the result files of the other tools into one
// unified report.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/516hackers/osint516/internal/version"
)

const (
	Tool         = "516 Hackers Report Generator"
	GeneratedBy  = "516 Hackers OSINT Toolkit"
	DefaultTitle = "516 Hackers OSINT Report"
)

// Source is one tool's most recent result file.
type Source struct {
	Tool string
	File string
	Data json.RawMessage
}

// LoadDir reads every *.json in dir that carries a "tool" field. Files are
// visited in name order so the last file of a tool wins. Unreadable files
// are logged and skipped; reports written by this package are ignored.
func LoadDir(dir string, log logrus.FieldLogger) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read results directory")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	byTool := map[string]int{}
	var out []Source
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			log.WithError(err).WithField("file", name).Warn("could not load result file")
			continue
		}
		if !gjson.ValidBytes(raw) {
			log.WithField("file", name).Warn("could not load result file: invalid JSON")
			continue
		}
		tool := gjson.GetBytes(raw, "tool")
		if tool.Type != gjson.String || tool.String() == "" || tool.String() == Tool {
			continue
		}

		src := Source{Tool: tool.String(), File: name, Data: raw}
		if i, ok := byTool[src.Tool]; ok {
			out[i] = src
			continue
		}
		byTool[src.Tool] = len(out)
		out = append(out, src)
	}
	return out, nil
}

type Metadata struct {
	Title       string    `json:"title"`
	GeneratedBy string    `json:"generated_by"`
	Timestamp   time.Time `json:"timestamp"`
	Version     string    `json:"version"`
}

type Summary struct {
	TotalSources   int      `json:"total_data_sources"`
	ToolsUsed      []string `json:"tools_used"`
	KeyFindings    []string `json:"key_findings"`
	RiskAssessment string   `json:"risk_assessment"`
}

type Report struct {
	Metadata        Metadata                   `json:"metadata"`
	Summary         Summary                    `json:"executive_summary"`
	Findings        map[string]json.RawMessage `json:"detailed_findings"`
	Recommendations []string                   `json:"recommendations"`
	// Files maps each tool to the file its findings came from.
	Files map[string]string `json:"source_files"`
}

// Build derives the summary and recommendations from sources.
func Build(sources []Source, title string, now time.Time) *Report {
	if title == "" {
		title = DefaultTitle
	}
	r := &Report{
		Metadata: Metadata{
			Title:       title,
			GeneratedBy: GeneratedBy,
			Timestamp:   now,
			Version:     version.Version,
		},
		Summary: Summary{
			TotalSources: len(sources),
			ToolsUsed:    []string{},
			KeyFindings:  []string{},
		},
		Findings:        make(map[string]json.RawMessage, len(sources)),
		Recommendations: []string{},
		Files:           make(map[string]string, len(sources)),
	}

	for _, s := range sources {
		r.Summary.ToolsUsed = append(r.Summary.ToolsUsed, s.Tool)
		r.Findings[s.Tool] = s.Data
		r.Files[s.Tool] = s.File
	}

	for _, rule := range rules {
		matched := false
		for _, s := range sources {
			if !strings.Contains(toolKey(s.Tool), rule.tool) {
				continue
			}
			matched = true
			if rule.evidence(s.Data) {
				r.Summary.KeyFindings = appendOnce(r.Summary.KeyFindings, rule.finding)
			}
		}
		if matched {
			r.Recommendations = append(r.Recommendations, rule.recommendations...)
		}
	}

	r.Summary.RiskAssessment = assessRisk(sources)
	return r
}

type rule struct {
	tool            string
	evidence        func(json.RawMessage) bool
	finding         string
	recommendations []string
}

var rules = []rule{
	{
		tool: "social",
		evidence: func(raw json.RawMessage) bool {
			return gjson.GetBytes(raw, "results.summary.platforms_found").Int() > 0
		},
		finding: "Social media presence detected",
		recommendations: []string{
			"Review social media privacy settings",
			"Consider removing or limiting publicly available personal information",
			"Monitor for impersonation accounts",
		},
	},
	{
		tool: "email",
		evidence: func(raw json.RawMessage) bool {
			return gjson.GetBytes(raw, "results.valid_emails").Exists() ||
				gjson.GetBytes(raw, "results.email_validation").Exists()
		},
		finding: "Email analysis completed",
		recommendations: []string{
			"Use email aliases for different services",
			"Enable two-factor authentication",
			"Monitor for data breaches involving your email",
		},
	},
	{
		tool: "domain",
		evidence: func(raw json.RawMessage) bool {
			return gjson.GetBytes(raw, "results.whois_info").Exists()
		},
		finding: "Domain research completed",
		recommendations: []string{
			"Ensure domain registration information is accurate",
			"Implement proper security headers on websites",
			"Regularly update DNS records",
		},
	},
}

// assessRisk grades exposure by how many social platforms were found.
func assessRisk(sources []Source) string {
	var found int64
	for _, s := range sources {
		if strings.Contains(toolKey(s.Tool), "social") {
			found = max(found, gjson.GetBytes(s.Data, "results.summary.platforms_found").Int())
		}
	}
	switch {
	case found >= 5:
		return "High"
	case found >= 3:
		return "Medium"
	default:
		return "Low"
	}
}

func toolKey(tool string) string {
	return strings.ReplaceAll(strings.ToLower(tool), " ", "_")
}

func appendOnce(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
