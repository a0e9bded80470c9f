package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/engramd/internal/hints"
	"github.com/fyrsmithlabs/engramd/internal/modules"
)

type modulesListInput struct{}

type modulesListOutput struct {
	Modules []modules.Module `json:"modules"`
	Count   int              `json:"count"`
	Hints   *hints.Hints     `json:"_hints,omitempty"`
}

func (s *Server) handleModulesList(ctx context.Context, req *mcp.CallToolRequest, args modulesListInput) (*mcp.CallToolResult, modulesListOutput, error) {
	cat := s.reg.Modules()
	if cat == nil || !cat.Enabled() {
		return textResult("Modules are only available in full mode."), modulesListOutput{
			Modules: []modules.Module{},
			Hints:   s.hints().Build(hints.Hints{Next: "Create .datacore/ under the storage path to enable modules."}),
		}, nil
	}

	list := cat.List()
	if list == nil {
		list = []modules.Module{}
	}
	return textResult(fmt.Sprintf("Found %d module(s)", len(list))), modulesListOutput{
		Modules: list,
		Count:   len(list),
		Hints:   s.hints().Build(hints.Hints{Related: []string{hints.ToolModulesInfo}}),
	}, nil
}

type modulesInfoInput struct {
	Name string `json:"name" jsonschema:"Module name"`
}

type modulesInfoOutput struct {
	Module *modules.Module `json:"module,omitempty"`
	Hints  *hints.Hints    `json:"_hints,omitempty"`
}

func (s *Server) handleModulesInfo(ctx context.Context, req *mcp.CallToolRequest, args modulesInfoInput) (*mcp.CallToolResult, modulesInfoOutput, error) {
	if strings.TrimSpace(args.Name) == "" {
		return nil, modulesInfoOutput{}, fmt.Errorf("name is required")
	}
	cat := s.reg.Modules()
	if cat == nil || !cat.Enabled() {
		return nil, modulesInfoOutput{}, fmt.Errorf("modules are only available in full mode")
	}

	m, err := cat.Info(args.Name)
	if errors.Is(err, modules.ErrNotFound) {
		return errorResult(err.Error()), modulesInfoOutput{
			Hints: s.hints().Build(hints.Hints{
				Next:    "Call " + hints.ToolModulesList + " to see installed modules.",
				Related: []string{hints.ToolModulesList},
			}),
		}, nil
	}
	if err != nil {
		return nil, modulesInfoOutput{}, err
	}
	return textResult(fmt.Sprintf("%s %s (%s)", m.Name, m.Version, m.Scope)), modulesInfoOutput{Module: m}, nil
}

type modulesHealthInput struct {
	Module string `json:"module,omitempty" jsonschema:"Module to check (default: all modules)"`
}

type modulesHealthOutput struct {
	Summary modules.HealthSummary `json:"summary"`
	Modules []modules.Check       `json:"modules"`
	Hints   *hints.Hints          `json:"_hints,omitempty"`
}

func (s *Server) handleModulesHealth(ctx context.Context, req *mcp.CallToolRequest, args modulesHealthInput) (*mcp.CallToolResult, modulesHealthOutput, error) {
	cat := s.reg.Modules()
	if cat == nil || !cat.Enabled() {
		return nil, modulesHealthOutput{}, fmt.Errorf("modules are only available in full mode")
	}

	report, err := cat.Health(strings.TrimSpace(args.Module))
	if errors.Is(err, modules.ErrNotFound) {
		return errorResult(err.Error()), modulesHealthOutput{
			Modules: []modules.Check{},
			Hints: s.hints().Build(hints.Hints{
				Next:    "Call " + hints.ToolModulesList + " to see installed modules.",
				Related: []string{hints.ToolModulesList},
			}),
		}, nil
	}
	if err != nil {
		return nil, modulesHealthOutput{}, err
	}

	out := modulesHealthOutput{Summary: report.Summary, Modules: report.Modules}
	if report.Summary.Errors > 0 {
		out.Hints = s.hints().Build(hints.Hints{Warning: fmt.Sprintf("%d module(s) cannot run until their required env vars are set.", report.Summary.Errors)})
	}
	sum := report.Summary
	return textResult(fmt.Sprintf("%d module(s): %d ok, %d warning(s), %d error(s)", sum.Total, sum.OK, sum.Warnings, sum.Errors)), out, nil
}

func (s *Server) registerModuleTools() {
	addTool(s, hints.ToolModulesList,
		"List modules installed under the storage path (full mode only).",
		s.handleModulesList)
	addTool(s, hints.ToolModulesInfo,
		"Show the manifest of one module.",
		s.handleModulesInfo)
	addTool(s, hints.ToolModulesHealth,
		"Check modules for missing files, legacy manifests, missing env vars and data kept in code directories.",
		s.handleModulesHealth)
}
