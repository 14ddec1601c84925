package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lana-info/llm-council/internal/domain/council"
	"github.com/lana-info/llm-council/internal/domain/skill"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.consultCouncilTool(),
		s.verifyWithCouncilTool(),
		s.councilHealthTool(),
		s.listSkillsTool(),
		s.getSkillTool(),
	)
}

func (s *Server) consultCouncilTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("consult_council",
		mcplib.WithDescription("Submit a question to the LLM council for multi-model deliberation and synthesis"),
		mcplib.WithString("query",
			mcplib.Required(),
			mcplib.Description("The question or task to deliberate on"),
		),
		mcplib.WithString("tier",
			mcplib.Description("Deliberation tier: quick, balanced, high, or reasoning"),
		),
		mcplib.WithBoolean("include_details",
			mcplib.Description("Include individual model answers and peer reviews in the result"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleConsultCouncil,
	}
}

func (s *Server) verifyWithCouncilTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("verify_with_council",
		mcplib.WithDescription("Ask the council to verify a claim or artifact and return a pass/fail/unclear verdict with confidence"),
		mcplib.WithString("query",
			mcplib.Required(),
			mcplib.Description("The claim, plan, or artifact to verify"),
		),
		mcplib.WithString("tier",
			mcplib.Description("Deliberation tier: quick, balanced, high, or reasoning"),
		),
		mcplib.WithNumber("confidence_threshold",
			mcplib.Description("Minimum confidence required for a pass verdict (0-1)"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleVerifyWithCouncil,
	}
}

func (s *Server) councilHealthTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("council_health",
		mcplib.WithDescription("Report router readiness and circuit breaker state"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleCouncilHealth,
	}
}

func (s *Server) listSkillsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_skills",
		mcplib.WithDescription("List available skills with their metadata"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListSkills,
	}
}

func (s *Server) getSkillTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_skill",
		mcplib.WithDescription("Load a skill at a progressive disclosure level: 1 = metadata, 2 = full instructions, 3 = a referenced resource file"),
		mcplib.WithString("name",
			mcplib.Required(),
			mcplib.Description("The skill name"),
		),
		mcplib.WithNumber("level",
			mcplib.Description("Disclosure level 1-3 (default 1)"),
		),
		mcplib.WithString("resource",
			mcplib.Description("Resource file name, required at level 3"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGetSkill,
	}
}

// consultResult is the wire shape consult_council returns. Details are
// omitted unless requested to keep the tool result small.
type consultResult struct {
	ID           string                     `json:"id"`
	Tier         string                     `json:"tier"`
	Answer       string                     `json:"answer"`
	Rankings     []council.AggregateRanking `json:"rankings,omitempty"`
	FailedModels []council.ModelFailure     `json:"failed_models,omitempty"`
	Escalation   bool                       `json:"escalation_hint,omitempty"`
	DurationMS   int64                      `json:"duration_ms"`
	Stage1       []council.Answer           `json:"stage1,omitempty"`
	Stage2       []council.Review           `json:"stage2,omitempty"`
}

func (s *Server) handleConsultCouncil(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Deliberator == nil {
		return mcplib.NewToolResultError("deliberator not configured"), nil
	}
	args := req.GetArguments()
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcplib.NewToolResultError("query is required"), nil
	}
	tierName, _ := args["tier"].(string)
	if tierName == "" {
		tierName = s.cfg.DefaultTier
	}

	res, err := s.deps.Deliberator.Deliberate(ctx, query, tierName)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("deliberation failed", err), nil
	}

	out := consultResult{
		ID:           res.ID,
		Tier:         string(res.Tier),
		Answer:       res.Stage3.Content,
		Rankings:     res.Metadata.AggregateRankings,
		FailedModels: res.Metadata.FailedModels,
		Escalation:   res.Metadata.EscalationHint,
		DurationMS:   res.Duration.Milliseconds(),
	}
	if include, _ := args["include_details"].(bool); include {
		out.Stage1 = res.Stage1
		out.Stage2 = res.Stage2
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleVerifyWithCouncil(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Verifier == nil {
		return mcplib.NewToolResultError("verifier not configured"), nil
	}
	args := req.GetArguments()
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcplib.NewToolResultError("query is required"), nil
	}
	tierName, _ := args["tier"].(string)
	if tierName == "" {
		tierName = s.cfg.DefaultTier
	}
	threshold, _ := args["confidence_threshold"].(float64)

	v, res, err := s.deps.Verifier.Verify(ctx, query, tierName, threshold)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("verification failed", err), nil
	}

	out := struct {
		DeliberationID string  `json:"deliberation_id"`
		Verdict        string  `json:"verdict"`
		Confidence     float64 `json:"confidence"`
		Rationale      string  `json:"rationale"`
		Issues         any     `json:"blocking_issues,omitempty"`
	}{
		DeliberationID: res.ID,
		Verdict:        string(v.Verdict),
		Confidence:     v.Confidence,
		Rationale:      v.Rationale,
	}
	if len(v.BlockingIssues) > 0 {
		out.Issues = v.BlockingIssues
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal verdict", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleCouncilHealth(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.HealthChecker == nil {
		return mcplib.NewToolResultError("health checker not configured"), nil
	}
	health := s.deps.HealthChecker.HealthCheck(ctx)
	data, err := json.Marshal(health)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal health", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleListSkills(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Skills == nil {
		return mcplib.NewToolResultError("skill library not configured"), nil
	}
	names, err := s.deps.Skills.List()
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list skills", err), nil
	}
	metas := make([]skill.Metadata, 0, len(names))
	for _, name := range names {
		meta, err := s.deps.Skills.LoadMetadata(name)
		if err != nil {
			// A malformed SKILL.md must not hide the rest of the library.
			continue
		}
		metas = append(metas, meta)
	}
	data, err := json.Marshal(metas)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal skills", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetSkill(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Skills == nil {
		return mcplib.NewToolResultError("skill library not configured"), nil
	}
	args := req.GetArguments()
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcplib.NewToolResultError("name is required"), nil
	}
	level := 1
	if lv, ok := args["level"].(float64); ok {
		level = int(lv)
	}

	switch level {
	case 1:
		meta, err := s.deps.Skills.LoadMetadata(name)
		if err != nil {
			return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to load skill %s", name), err), nil
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return mcplib.NewToolResultErrorFromErr("failed to marshal skill", err), nil
		}
		return toolResultJSON(string(data)), nil
	case 2:
		sk, err := s.deps.Skills.LoadFull(name)
		if err != nil {
			return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to load skill %s", name), err), nil
		}
		data, err := json.Marshal(sk)
		if err != nil {
			return mcplib.NewToolResultErrorFromErr("failed to marshal skill", err), nil
		}
		return toolResultJSON(string(data)), nil
	case 3:
		resource, _ := args["resource"].(string)
		if resource == "" {
			resources, err := s.deps.Skills.ListResources(name)
			if err != nil {
				return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to list resources of %s", name), err), nil
			}
			data, err := json.Marshal(resources)
			if err != nil {
				return mcplib.NewToolResultErrorFromErr("failed to marshal resources", err), nil
			}
			return toolResultJSON(string(data)), nil
		}
		content, err := s.deps.Skills.LoadResource(name, resource)
		if err != nil {
			return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to load resource %s of %s", resource, name), err), nil
		}
		return mcplib.NewToolResultText(content), nil
	default:
		return mcplib.NewToolResultError("level must be 1, 2, or 3"), nil
	}
}

func toolResultJSON(text string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(text)
}
