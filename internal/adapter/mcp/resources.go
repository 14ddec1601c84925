package mcp

import (
	"context"
	"encoding/json"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/lana-info/llm-council/internal/domain/skill"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"skill://",
			"Skill Index",
			mcplib.WithResourceDescription("Metadata for every available skill"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleSkillIndexResource,
	)

	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			"skill://{name}",
			"Skill",
			mcplib.WithTemplateDescription("Full instructions for a named skill"),
			mcplib.WithTemplateMIMEType("text/markdown"),
		),
		s.handleSkillResource,
	)
}

func (s *Server) handleSkillIndexResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Skills == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"skill library not configured"}`,
			},
		}, nil
	}
	names, err := s.deps.Skills.List()
	if err != nil {
		return nil, err
	}
	metas := make([]skill.Metadata, 0, len(names))
	for _, name := range names {
		meta, err := s.deps.Skills.LoadMetadata(name)
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	data, err := json.Marshal(metas)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleSkillResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Skills == nil {
		return nil, skill.ErrNotFound
	}
	name := strings.TrimPrefix(req.Params.URI, "skill://")
	sk, err := s.deps.Skills.LoadFull(name)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     sk.Body,
		},
	}, nil
}
