// Package report renders a scenario report for people and for tooling.
package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"brighthorizons-e2e/internal/domain/entity"
)

//go:embed summary.txt
var SummaryTemplate string

var funcs = template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
	"duration": func(d time.Duration) string {
		return d.Round(time.Millisecond).String()
	},
}

// Summary renders r with tmpl, or with SummaryTemplate when tmpl is empty.
func Summary(r *entity.ScenarioReport, tmpl string) (string, error) {
	if tmpl == "" {
		tmpl = SummaryTemplate
	}
	t, err := template.New("summary").Funcs(funcs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse summary template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}

// WriteJSON writes r as indented JSON, creating the parent directory.
func WriteJSON(path string, r *entity.ScenarioReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
