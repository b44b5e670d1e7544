package configstore

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/shopoverlay/kit"
)

var (
	productIDProp = map[string]any{"type": "string", "description": "Product handle or numeric id"}
	actorProp     = map[string]any{"type": "string", "description": "Operator name recorded with the change"}
)

// RegisterMCP registers the overlay_get, overlay_set, overlay_clear and
// overlay_list tools on srv.
func RegisterMCP(srv *mcp.Server, eps Endpoints) {
	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "overlay_get",
		Description: "Return the overlay configured for a product, or null.",
		InputSchema: kit.InputSchema(map[string]any{"product_id": productIDProp}, "product_id"),
	}, eps.Get, kit.DecodeArgs[GetRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name: "overlay_set",
		Description: "Configure a product's overlay. Empty fields remove the stored value; " +
			"kind and text are both needed for the overlay to show.",
		InputSchema: kit.InputSchema(map[string]any{
			"product_id": productIDProp,
			"overlay": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"kind":     map[string]any{"type": "string", "description": "text, badge or image"},
					"text":     map[string]any{"type": "string", "description": "Label, at most 64 characters"},
					"position": map[string]any{"type": "string", "description": "top-left, top-center, ..., bottom-right"},
					"color":    map[string]any{"type": "string", "description": "CSS color, e.g. #ff0000"},
					"size":     map[string]any{"type": "string", "description": "small, medium or large"},
				},
			},
			"actor": actorProp,
		}, "product_id", "overlay"),
	}, eps.Set, decodeAdmin[SetRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "overlay_clear",
		Description: "Remove a product's overlay.",
		InputSchema: kit.InputSchema(map[string]any{"product_id": productIDProp, "actor": actorProp}, "product_id"),
	}, eps.Clear, decodeAdmin[ClearRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "overlay_list",
		Description: "List products with a configured overlay, most recently changed first.",
		InputSchema: kit.InputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum results (default 100)"},
		}),
	}, eps.List, kit.DecodeArgs[ListRequest]())
}

// decodeAdmin decodes T and attributes the call to the optional "actor"
// argument, the MCP counterpart of ActorHeader.
func decodeAdmin[T any]() func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	decode := kit.DecodeArgs[T]()
	return func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		res, err := decode(req)
		if err != nil {
			return nil, err
		}
		var args struct {
			Actor string `json:"actor"`
		}
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, err
			}
		}
		if args.Actor != "" {
			res.EnrichCtx = func(ctx context.Context) context.Context {
				return kit.WithActor(ctx, args.Actor)
			}
		}
		return res, nil
	}
}
