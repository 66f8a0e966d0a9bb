// Package mcp lets MCP clients drive the estimator modal and read the
// estimates behind it.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/standardbeagle/estimator/pkg/estimate"
)

// Presenter is the modal being driven. *tui.Bridge satisfies it.
type Presenter interface {
	Open(ctx context.Context, productID string, forceList bool) error
	ShowEstimatesList(ctx context.Context, expandEstimateID, expandRoomID string) error
	ShowNewEstimateForm(ctx context.Context, productID string) error
	ShowRoomSelection(ctx context.Context, estimateID string) error
}

// Catalog is the read side the listing tools use.
type Catalog interface {
	ListEstimates(ctx context.Context) ([]estimate.Estimate, error)
	ListProducts(ctx context.Context) ([]estimate.Product, error)
}

// NewServer builds the MCP server with every estimator tool registered.
func NewServer(p Presenter, data Catalog, version string) *server.MCPServer {
	srv := server.NewMCPServer(
		"estimator",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("Drive the estimate builder: open it for a product, show estimates, start a new estimate or pick a room."),
		server.WithRecovery(),
	)
	registerPresentationTools(srv, p)
	registerListingTools(srv, data)
	return srv
}

func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}

func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcplib.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return textResult(string(raw)), nil
}

func registerPresentationTools(srv *server.MCPServer, p Presenter) {
	openTool := mcplib.NewTool("open_estimator",
		mcplib.WithDescription(`Open the estimate modal.

With product_id the add-to-estimate flow starts for that product: the user picks an estimate and a room, or creates them. Without product_id, or with list=true, the estimates list is shown.`),
		mcplib.WithString("product_id",
			mcplib.Description("Catalog product to add. Variable products prompt for a variation."),
		),
		mcplib.WithBoolean("list",
			mcplib.Description("Show the estimates list even when product_id is set"),
		),
	)
	srv.AddTool(openTool, func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		productID := strings.TrimSpace(request.GetString("product_id", ""))
		forceList := request.GetBool("list", false)
		if err := p.Open(ctx, productID, forceList); err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("Failed to open estimator: %v", err)), nil
		}
		if productID != "" && !forceList {
			return textResult(fmt.Sprintf("Estimator opened to add %s", productID)), nil
		}
		return textResult("Estimator opened on the estimates list"), nil
	})

	listTool := mcplib.NewTool("show_estimates_list",
		mcplib.WithDescription("Show every estimate, optionally expanding one estimate and one of its rooms."),
		mcplib.WithString("estimate_id",
			mcplib.Description("Estimate to expand"),
		),
		mcplib.WithString("room_id",
			mcplib.Description("Room to expand inside estimate_id"),
		),
	)
	srv.AddTool(listTool, func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		estimateID := request.GetString("estimate_id", "")
		roomID := request.GetString("room_id", "")
		if roomID != "" && estimateID == "" {
			return mcplib.NewToolResultError("room_id needs estimate_id"), nil
		}
		if err := p.ShowEstimatesList(ctx, estimateID, roomID); err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("Failed to show estimates: %v", err)), nil
		}
		return textResult("Showing estimates list"), nil
	})

	formTool := mcplib.NewTool("show_new_estimate_form",
		mcplib.WithDescription("Show the new estimate form. With product_id the product is added once the estimate and a room exist."),
		mcplib.WithString("product_id",
			mcplib.Description("Product to carry into the new estimate"),
		),
	)
	srv.AddTool(formTool, func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		if err := p.ShowNewEstimateForm(ctx, request.GetString("product_id", "")); err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("Failed to show form: %v", err)), nil
		}
		return textResult("Showing new estimate form"), nil
	})

	roomTool := mcplib.NewTool("show_room_selection",
		mcplib.WithDescription("Show the rooms of an estimate so the user can pick one or add a room."),
		mcplib.WithString("estimate_id",
			mcplib.Required(),
			mcplib.Description("Estimate whose rooms are shown"),
		),
	)
	srv.AddTool(roomTool, func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		estimateID, err := request.RequireString("estimate_id")
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		if err := p.ShowRoomSelection(ctx, estimateID); err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("Failed to show rooms: %v", err)), nil
		}
		return textResult(fmt.Sprintf("Showing rooms of %s", estimateID)), nil
	})
}

type estimateSummary struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Rooms  []roomSummary   `json:"rooms"`
	Totals estimate.Totals `json:"totals"`
}

type roomSummary struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Products []string        `json:"products"`
	Totals   estimate.Totals `json:"totals"`
}

func summarize(list []estimate.Estimate) []estimateSummary {
	out := make([]estimateSummary, 0, len(list))
	for _, e := range list {
		s := estimateSummary{ID: e.ID, Name: e.Name, Totals: e.Totals(), Rooms: []roomSummary{}}
		for _, r := range e.RoomList() {
			rs := roomSummary{ID: r.ID, Name: r.Name, Totals: r.Totals(), Products: []string{}}
			for _, p := range r.Products {
				rs.Products = append(rs.Products, p.ID)
			}
			s.Rooms = append(s.Rooms, rs)
		}
		out = append(out, s)
	}
	return out
}

func registerListingTools(srv *server.MCPServer, data Catalog) {
	estimatesTool := mcplib.NewTool("list_estimates",
		mcplib.WithDescription("List estimates with their rooms, product ids and price totals. Use the ids with show_room_selection or show_estimates_list."),
	)
	srv.AddTool(estimatesTool, func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		list, err := data.ListEstimates(ctx)
		if err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("Failed to list estimates: %v", err)), nil
		}
		return jsonResult(summarize(list))
	})

	productsTool := mcplib.NewTool("list_products",
		mcplib.WithDescription("List catalog products that can be passed as product_id."),
		mcplib.WithString("category",
			mcplib.Description("Only products in this category"),
		),
	)
	srv.AddTool(productsTool, func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		products, err := data.ListProducts(ctx)
		if err != nil {
			return mcplib.NewToolResultError(fmt.Sprintf("Failed to list products: %v", err)), nil
		}
		category := request.GetString("category", "")
		out := make([]estimate.Product, 0, len(products))
		for _, p := range products {
			if category == "" || hasCategory(p, category) {
				out = append(out, p)
			}
		}
		return jsonResult(out)
	})
}

func hasCategory(p estimate.Product, category string) bool {
	for _, c := range p.CategoryIDs {
		if c == category {
			return true
		}
	}
	return false
}
