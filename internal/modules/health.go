package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Health states, from best to worst.
const (
	HealthOK      = "ok"
	HealthWarning = "warning"
	HealthError   = "error"
)

const (
	skillFile   = "SKILL.md"
	contextFile = "CLAUDE.base.md"
	toolsIndex  = "tools/index.js"
)

// Data that belongs in a space data path, not in module code.
var (
	dataDirs = []string{"output", "data", "state"}
	dataExts = []string{".db", ".sqlite", ".json"}
)

// Check is the health of one module.
type Check struct {
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Issues []string `json:"issues"`
}

// HealthSummary counts checks by status.
type HealthSummary struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// HealthReport is the result of checking every module.
type HealthReport struct {
	Summary HealthSummary `json:"summary"`
	Modules []Check       `json:"modules"`
}

// Health checks the named module, or every module when name is empty.
// A missing required environment variable is an error; every other issue
// is a warning.
func (c *Catalog) Health(name string) (*HealthReport, error) {
	mods := c.List()
	if name != "" {
		m, err := c.Info(name)
		if err != nil {
			return nil, err
		}
		mods = []Module{*m}
	}

	report := &HealthReport{Modules: make([]Check, 0, len(mods))}
	for _, m := range mods {
		check := c.check(m)
		report.Modules = append(report.Modules, check)
		switch check.Status {
		case HealthOK:
			report.Summary.OK++
		case HealthWarning:
			report.Summary.Warnings++
		case HealthError:
			report.Summary.Errors++
		}
	}
	report.Summary.Total = len(report.Modules)
	return report, nil
}

func (c *Catalog) check(m Module) Check {
	issues := []string{}
	failed := false

	if !exists(filepath.Join(m.Path, skillFile)) {
		issues = append(issues, "Missing "+skillFile+" (ecosystem entry point)")
	}
	if !exists(filepath.Join(m.Path, contextFile)) {
		issues = append(issues, "Missing "+contextFile+" (AI context)")
	}
	if m.ManifestVersion < 2 {
		issues = append(issues, ManifestFile+" uses v1 format (missing manifest_version: 2)")
	}

	if m.Requires != nil {
		for _, env := range m.Requires.EnvRequired {
			if os.Getenv(env) == "" {
				issues = append(issues, "Missing required env var: "+env)
				failed = true
			}
		}
	}

	if m.Provides.Tools > 0 && !exists(filepath.Join(m.Path, filepath.FromSlash(toolsIndex))) {
		issues = append(issues, fmt.Sprintf("Declares %d tools but %s not found", m.Provides.Tools, toolsIndex))
	}

	for _, dir := range dataDirs {
		if info, err := os.Stat(filepath.Join(m.Path, dir)); err == nil && info.IsDir() {
			issues = append(issues, fmt.Sprintf("Data dir '%s/' found in module code (should be in space data path)", dir))
		}
	}
	entries, err := os.ReadDir(m.Path)
	if err != nil {
		c.logger.Debug("failed to read module directory", zap.String("dir", m.Path), zap.Error(err))
	}
	for _, entry := range entries {
		for _, ext := range dataExts {
			if strings.HasSuffix(entry.Name(), ext) {
				issues = append(issues, fmt.Sprintf("Data file '%s' found in module code dir", entry.Name()))
				break
			}
		}
	}

	status := HealthOK
	switch {
	case failed:
		status = HealthError
	case len(issues) > 0:
		status = HealthWarning
	}
	return Check{Name: m.Name, Status: status, Issues: issues}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
