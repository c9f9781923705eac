// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the valet registry to LLM assistants via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/valet/internal/apperr"
	"github.com/starford/valet/internal/registry"
	"github.com/starford/valet/internal/transfer"
)

const importFormatURI = "valet://import-format"

// Server wraps the MCP server with valet tools.
type Server struct {
	mcp *server.MCPServer
	svc *registry.Service
}

// New creates a new MCP server with all valet tools registered.
func New(svc *registry.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Valet",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_clients",
		mcp.WithDescription("Search clients by name, CPF or phone number."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Name fragment or digits of a CPF/phone")),
	), s.searchClients)

	s.mcp.AddTool(mcp.NewTool("get_client_records",
		mcp.WithDescription("Return a client with its parking records, most recent first."),
		mcp.WithString("client_id", mcp.Required(), mcp.Description("Client ID as returned by search_clients")),
	), s.getClientRecords)

	s.mcp.AddTool(mcp.NewTool("history_summary",
		mcp.WithDescription("Per-year, per-month and per-day record counts."),
	), s.historySummary)

	s.mcp.AddTool(mcp.NewTool("daily_records",
		mcp.WithDescription("Records whose entry falls on the given day."),
		mcp.WithString("date", mcp.Description("Day as YYYY-MM-DD (defaults to today)")),
	), s.dailyRecords)

	s.mcp.AddTool(mcp.NewTool("import_clients",
		mcp.WithDescription("Import clients from a CSV or XLSX spreadsheet. "+
			"Read the column contract first via get_import_format or the "+
			importFormatURI+" resource."),
		mcp.WithString("url", mcp.Required(), mcp.Description("base64 data URI of the spreadsheet (data:text/csv;base64,...)")),
		mcp.WithString("filename", mcp.Description("Original file name; its extension picks the parser")),
	), s.importClients)

	s.mcp.AddTool(mcp.NewTool("get_import_format",
		mcp.WithDescription("Returns the spreadsheet column contract used by import_clients."),
	), s.getImportFormat)

	s.mcp.AddResource(
		mcp.NewResource(importFormatURI, "Import Format Contract",
			mcp.WithResourceDescription("Column layout accepted by client imports."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readImportFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchClients(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	clients, err := s.svc.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(clients), nil
}

func (s *Server) getClientRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("client_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.svc.ClientRecords(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("client not found: " + id), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(report.Records) == 0 {
		return mcp.NewToolResultText(transfer.NoRecordsMessage), nil
	}
	return jsonResult(report), nil
}

func (s *Server) historySummary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.svc.Summary(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if sum == nil {
		return mcp.NewToolResultText("no records"), nil
	}
	return jsonResult(sum), nil
}

func (s *Server) dailyRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day := s.svc.Now()
	if v := req.GetString("date", ""); v != "" {
		d, err := time.ParseInLocation("2006-01-02", v, s.svc.Location())
		if err != nil {
			return mcp.NewToolResultError("date must be YYYY-MM-DD"), nil
		}
		day = d
	}
	records, err := s.svc.DailyRecords(ctx, day)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(records), nil
}

func (s *Server) getImportFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ImportFormatContract), nil
}

func (s *Server) readImportFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      importFormatURI,
			MIMEType: "text/markdown",
			Text:     ImportFormatContract,
		},
	}, nil
}
