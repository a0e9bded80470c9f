package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/engramd/internal/hints"
	"github.com/fyrsmithlabs/engramd/internal/packs"
)

// ===== DISCOVER =====

type discoverInput struct {
	Query string   `json:"query,omitempty" jsonschema:"Substring of pack name, description or tag"`
	Tags  []string `json:"tags,omitempty" jsonschema:"Only packs carrying any of these tags"`
}

// packView flattens packs.Discovered for tool output.
type packView struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Version          string   `json:"version"`
	Source           string   `json:"source"`
	Tags             []string `json:"tags,omitempty"`
	Creator          string   `json:"creator,omitempty"`
	EngramCount      int      `json:"engram_count,omitempty"`
	Installed        bool     `json:"installed"`
	InstalledVersion string   `json:"installed_version,omitempty"`
	Upgradeable      bool     `json:"upgradeable"`
	Trusted          bool     `json:"trusted"`
}

type discoverOutput struct {
	Packs []packView   `json:"packs"`
	Count int          `json:"count"`
	Hints *hints.Hints `json:"_hints,omitempty"`
}

func (s *Server) handleDiscover(ctx context.Context, req *mcp.CallToolRequest, args discoverInput) (*mcp.CallToolResult, discoverOutput, error) {
	found, err := s.reg.Packs().Discover(ctx, args.Query, args.Tags)
	if err != nil {
		return nil, discoverOutput{}, fmt.Errorf("discover failed: %w", err)
	}

	out := discoverOutput{Packs: make([]packView, 0, len(found)), Count: len(found)}
	upgradeable := 0
	for _, d := range found {
		out.Packs = append(out.Packs, packView{
			ID:               d.ID,
			Name:             d.Name,
			Description:      d.Description,
			Version:          d.Version,
			Source:           d.Source,
			Tags:             d.Tags,
			Creator:          d.Creator,
			EngramCount:      d.EngramCount,
			Installed:        d.Installed,
			InstalledVersion: d.InstalledVersion,
			Upgradeable:      d.Upgradeable,
			Trusted:          d.Trusted,
		})
		if d.Upgradeable {
			upgradeable++
		}
	}

	h := hints.Hints{Related: []string{hints.ToolInstall}}
	switch {
	case len(found) == 0:
		h.Next = "No packs matched. Add entries to packs.registry or packs.json."
	case upgradeable > 0:
		h.Next = fmt.Sprintf("%d installed pack(s) have a newer version. Call %s to upgrade.", upgradeable, hints.ToolInstall)
	default:
		h.Next = "Install a pack with " + hints.ToolInstall + " using its source."
	}
	out.Hints = s.hints().Build(h)
	return textResult(fmt.Sprintf("Found %d pack(s)", len(found))), out, nil
}

// ===== INSTALL =====

type installInput struct {
	Source string `json:"source" jsonschema:"Local pack directory or git URL"`
}

type installOutput struct {
	Result *packs.InstallResult `json:"result"`
	Hints  *hints.Hints         `json:"_hints,omitempty"`
}

func (s *Server) handleInstall(ctx context.Context, req *mcp.CallToolRequest, args installInput) (*mcp.CallToolResult, installOutput, error) {
	if strings.TrimSpace(args.Source) == "" {
		return nil, installOutput{}, fmt.Errorf("source is required")
	}
	res, err := s.reg.Packs().Install(ctx, args.Source)
	if err != nil {
		return nil, installOutput{}, fmt.Errorf("install failed: %w", err)
	}

	msg := fmt.Sprintf("Pack %s %s (%s)", res.PackID, res.Status, res.Version)
	if res.PreviousVersion != "" {
		msg = fmt.Sprintf("Pack %s %s from %s to %s", res.PackID, res.Status, res.PreviousVersion, res.Version)
	}
	return textResult(msg), installOutput{
		Result: res,
		Hints:  s.hints().Install(res.Trusted),
	}, nil
}

// ===== EXPORT =====

type exportInput struct {
	Name         string   `json:"name" jsonschema:"Pack name; the pack ID is derived from it"`
	Description  string   `json:"description,omitempty" jsonschema:"Pack description"`
	IDs          []string `json:"ids,omitempty" jsonschema:"Engram IDs to export (default all eligible)"`
	FilterTags   []string `json:"filter_tags,omitempty" jsonschema:"Only engrams carrying any of these tags"`
	FilterDomain string   `json:"filter_domain,omitempty" jsonschema:"Only engrams in this domain or below it"`
	Confirm      bool     `json:"confirm,omitempty" jsonschema:"Write the pack; otherwise return a preview"`
}

type exportOutput struct {
	Result *packs.ExportResult `json:"result"`
	Hints  *hints.Hints        `json:"_hints,omitempty"`
}

func (s *Server) handleExport(ctx context.Context, req *mcp.CallToolRequest, args exportInput) (*mcp.CallToolResult, exportOutput, error) {
	res, err := s.reg.Packs().Export(ctx, packs.ExportRequest{
		Name:         args.Name,
		Description:  args.Description,
		IDs:          args.IDs,
		FilterTags:   args.FilterTags,
		FilterDomain: args.FilterDomain,
		Confirm:      args.Confirm,
	})
	if err != nil {
		return nil, exportOutput{}, fmt.Errorf("export failed: %w", err)
	}

	preview := res.Preview != nil
	msg := fmt.Sprintf("Exported %d engram(s) to %s", res.Count, res.PackPath)
	if preview {
		msg = fmt.Sprintf("Preview: %d engram(s) would be exported to %s", res.Preview.Count, res.Preview.PackPath)
	}
	return textResult(msg), exportOutput{
		Result: res,
		Hints:  s.hints().Export(preview, res.Redactions),
	}, nil
}

func (s *Server) registerPackTools() {
	addTool(s, hints.ToolDiscover,
		"List registry packs with their install state.",
		s.handleDiscover)
	addTool(s, hints.ToolInstall,
		"Install or upgrade a pack from a directory or git URL.",
		s.handleInstall)
	addTool(s, hints.ToolExport,
		"Export public and template engrams as a pack. Returns a preview unless confirm is true.",
		s.handleExport)
}
