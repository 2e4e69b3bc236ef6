package app

import (
	"bytes"
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/516hackers/osint516/internal/report"
	"github.com/516hackers/osint516/internal/sink"
)

func runReport(_ context.Context, env *Env, _ []string) error {
	dir := env.Opts.Directory
	if dir == "" {
		dir = env.Cfg.OutputDir
	}

	env.Out.Banner("516 Hackers - Generating Unified Report")

	sources, err := report.LoadDir(dir, env.Log)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.Errorf("no result files found in %s", dir)
	}

	now := env.Now()
	r := report.Build(sources, env.Opts.Title, now)

	s := env.Sink(report.Tool)
	base := "unified_osint_report_" + now.Format(sink.StampLayout)
	jsonPath, err := s.PersistAs(base+".json", r)
	if err != nil {
		return err
	}
	var text bytes.Buffer
	if err := report.WriteText(&text, r); err != nil {
		return err
	}
	textPath, err := s.WriteFile(base+".txt", text.Bytes())
	if err != nil {
		return err
	}

	env.Out.Success("Generated unified report from %d data sources", len(sources))
	env.Out.Line("   JSON: %s", jsonPath)
	env.Out.Line("   TXT: %s", textPath)
	env.Out.Line("Executive Summary:")
	env.Out.Line("   Tools Used: %s", strings.Join(r.Summary.ToolsUsed, ", "))
	env.Out.Line("   Key Findings: %d", len(r.Summary.KeyFindings))
	env.Out.Line("   Risk Assessment: %s", r.Summary.RiskAssessment)

	rows := make([][]string, 0, len(sources))
	for _, src := range sources {
		rows = append(rows, []string{src.Tool, src.File})
	}
	env.Out.Table([]string{"Tool", "Source File"}, rows)
	return nil
}
