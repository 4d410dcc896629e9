package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers inspector tools on an MCP server.
func (i *Inspector) RegisterMCP(srv *mcp.Server) {
	i.registerAnalyzeTool(srv)
	i.registerCaptureTool(srv)
	i.registerTrackTool(srv)
	i.registerHighlightTool(srv)
	i.registerHistoryTool(srv)
	i.registerConfigTool(srv)
	i.registerChatIDTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// registerTool wraps an endpoint in the MCP call shape: decode the
// arguments, run, marshal the reply into text content. Endpoint errors
// become tool errors, never protocol errors.
func registerTool[Req any](srv *mcp.Server, tool *mcp.Tool, endpoint func(context.Context, *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r Req
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}

		resp, err := endpoint(ctx, &r)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// --- analyze ---

func (i *Inspector) registerAnalyzeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domscope_analyze",
		Description: "Extract interactive elements from the inspected page with XPath and CSS selectors.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	type req struct{}
	registerTool(srv, tool, func(_ context.Context, _ *req) (any, error) {
		elements := i.AnalyzeDOM()
		return map[string]any{"count": len(elements), "elements": elements}, nil
	})
}

// --- capture ---

func (i *Inspector) registerCaptureTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domscope_capture",
		Description: "Capture one aggregated page context: DOM state, interactions, validations, conditional rendering, and the LLM summary.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	type req struct{}
	registerTool(srv, tool, func(ctx context.Context, _ *req) (any, error) {
		c, err := i.CaptureContext(ctx)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// --- track ---

func (i *Inspector) registerTrackTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domscope_track",
		Description: "Start or stop continuous analysis: mutation tracking plus the periodic capture loop.",
		InputSchema: inputSchema(map[string]any{
			"action": map[string]any{"type": "string", "enum": []any{"start", "stop"}, "description": "start or stop tracking"},
		}, []string{"action"}),
	}

	type req struct {
		Action string `json:"action"`
	}
	registerTool(srv, tool, func(ctx context.Context, r *req) (any, error) {
		switch r.Action {
		case "start":
			i.StartTracking(context.WithoutCancel(ctx))
		case "stop":
			i.StopTracking()
		default:
			return nil, fmt.Errorf("unknown action %q", r.Action)
		}
		return map[string]string{"status": "ok", "action": r.Action}, nil
	})
}

// --- highlight ---

func (i *Inspector) registerHighlightTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domscope_highlight",
		Description: "Outline an element by CSS selector, or remove highlights.",
		InputSchema: inputSchema(map[string]any{
			"selector": map[string]any{"type": "string", "description": "CSS selector of the element"},
			"remove":   map[string]any{"type": "boolean", "description": "Remove the highlight instead of adding it"},
		}, nil),
	}

	type req struct {
		Selector string `json:"selector"`
		Remove   bool   `json:"remove"`
	}
	registerTool(srv, tool, func(_ context.Context, r *req) (any, error) {
		if r.Remove {
			if err := i.RemoveHighlight(r.Selector); err != nil {
				return nil, err
			}
		} else {
			if r.Selector == "" {
				return nil, fmt.Errorf("selector required")
			}
			if err := i.HighlightElement(r.Selector); err != nil {
				return nil, err
			}
		}
		return map[string]string{"status": "ok"}, nil
	})
}

// --- history ---

func (i *Inspector) registerHistoryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domscope_history",
		Description: "List recent captured contexts, newest last.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max captures to return (default: all retained)"},
		}, nil),
	}

	type req struct {
		Limit int `json:"limit"`
	}
	registerTool(srv, tool, func(_ context.Context, r *req) (any, error) {
		history := i.History()
		if r.Limit > 0 && len(history) > r.Limit {
			history = history[len(history)-r.Limit:]
		}
		return history, nil
	})
}

// --- config ---

func (i *Inspector) registerConfigTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domscope_config",
		Description: "Export the active inspector configuration as JSON.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	type req struct{}
	registerTool(srv, tool, func(_ context.Context, _ *req) (any, error) {
		data, err := i.cfg.Export()
		if err != nil {
			return nil, err
		}
		return json.RawMessage(data), nil
	})
}

// --- chat_id ---

func (i *Inspector) registerChatIDTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domscope_chat_id",
		Description: "Get or set the chat ID attached to captured contexts.",
		InputSchema: inputSchema(map[string]any{
			"set": map[string]any{"type": "string", "description": "New chat ID; omit to read the current one"},
		}, nil),
	}

	type req struct {
		Set string `json:"set"`
	}
	registerTool(srv, tool, func(ctx context.Context, r *req) (any, error) {
		if r.Set != "" {
			if err := i.SetChatID(ctx, r.Set); err != nil {
				return nil, err
			}
		}
		return map[string]string{"chat_id": i.ChatID(ctx)}, nil
	})
}
