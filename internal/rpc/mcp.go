package rpc

import (
	"context"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"turnindex/internal/learning"
	"turnindex/internal/maintenance"
)

// ToolRegistry maps tool names to their typed handler functions, mirroring
// how the handlers are organized before mcp.AddTool pairs each one with its
// ToolDefinitions entry.
type ToolRegistry struct {
	handlers map[string]interface{}
}

func newToolRegistry() *ToolRegistry {
	return &ToolRegistry{handlers: make(map[string]interface{})}
}

func (r *ToolRegistry) register(name string, handler interface{}) {
	r.handlers[name] = handler
}

func (r *ToolRegistry) get(name string) (interface{}, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// RegisterAllTools registers every tool in ToolDefinitions against mcpServer,
// backed by s.
func (s *Service) RegisterAllTools(mcpServer *mcp.Server) {
	registry := newToolRegistry()

	registry.register("search_conversations", s.handleSearchConversations)
	registry.register("search_validated", s.handleSearchValidated)
	registry.register("search_failed", s.handleSearchFailed)
	registry.register("most_recent", s.handleMostRecent)
	registry.register("context_chain", s.handleContextChain)
	registry.register("force_sync", s.handleForceSync)
	registry.register("process_validation_feedback", s.handleProcessValidationFeedback)
	registry.register("health_report", s.handleHealthReport)
	registry.register("backfill_chains", s.handleBackfillChains)

	for _, tool := range ToolDefinitions {
		handler, ok := registry.get(tool.Name)
		if !ok {
			if os.Getenv("DEBUG") == "true" {
				println("rpc: no handler registered for tool:", tool.Name)
			}
			continue
		}
		toolCopy := tool
		mcp.AddTool(mcpServer, &toolCopy, handler)
	}
}

func (s *Service) handleSearchConversations(ctx context.Context, req *mcp.CallToolRequest, input SearchRequest) (*mcp.CallToolResult, *SearchResponse, error) {
	resp, err := s.SearchConversations(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{}, &resp, nil
}

func (s *Service) handleSearchValidated(ctx context.Context, req *mcp.CallToolRequest, input SearchValidatedRequest) (*mcp.CallToolResult, *SearchResponse, error) {
	resp, err := s.SearchValidated(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{}, &resp, nil
}

func (s *Service) handleSearchFailed(ctx context.Context, req *mcp.CallToolRequest, input SearchFailedRequest) (*mcp.CallToolResult, *SearchResponse, error) {
	resp, err := s.SearchFailed(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{}, &resp, nil
}

func (s *Service) handleMostRecent(ctx context.Context, req *mcp.CallToolRequest, input MostRecentRequest) (*mcp.CallToolResult, *MostRecentResponse, error) {
	resp, err := s.MostRecent(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{}, &resp, nil
}

func (s *Service) handleContextChain(ctx context.Context, req *mcp.CallToolRequest, input ContextChainRequest) (*mcp.CallToolResult, *ContextChainResponse, error) {
	resp, err := s.ContextChain(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{}, &resp, nil
}

func (s *Service) handleForceSync(ctx context.Context, req *mcp.CallToolRequest, input EmptyRequest) (*mcp.CallToolResult, *ForceSyncResponse, error) {
	resp, err := s.ForceSync(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{}, &resp, nil
}

func (s *Service) handleProcessValidationFeedback(ctx context.Context, req *mcp.CallToolRequest, input ProcessValidationFeedbackRequest) (*mcp.CallToolResult, *learning.Outcome, error) {
	outcome, err := s.ProcessValidationFeedback(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{}, &outcome, nil
}

func (s *Service) handleHealthReport(ctx context.Context, req *mcp.CallToolRequest, input HealthReportRequest) (*mcp.CallToolResult, *maintenance.HealthReport, error) {
	report, err := s.HealthReport(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{}, &report, nil
}

func (s *Service) handleBackfillChains(ctx context.Context, req *mcp.CallToolRequest, input BackfillChainsRequest) (*mcp.CallToolResult, *BackfillChainsResponse, error) {
	resp, err := s.BackfillChains(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{}, &resp, nil
}
