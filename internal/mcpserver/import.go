package mcpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/valet/internal/apperr"
	"github.com/starford/valet/internal/transfer"
)

const maxImportSize = 20 << 20 // 20 MB

var (
	mimeToExt = map[string]string{
		"text/csv":                 ".csv",
		"application/csv":          ".csv",
		"application/vnd.ms-excel": ".csv",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
		"application/vnd.ms-excel.sheet.macroEnabled.12":                    ".xlsm",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

func (s *Server) importClients(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !strings.HasPrefix(rawURL, "data:") {
		return mcp.NewToolResultError("only data URIs are supported"), nil
	}

	data, detectedExt, err := decodeDataURI(rawURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxImportSize {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), maxImportSize)), nil
	}

	filename := sanitizeFilename(req.GetString("filename", ""))
	if filename == "" {
		filename = "import" + detectedExt
	}
	if !transfer.Supported(filename) {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported file: %s (allowed: csv, xlsx)", filename)), nil
	}

	out, err := s.svc.Import(ctx, filename, data)
	if errors.Is(err, apperr.ErrUnreadableFile) {
		return mcp.NewToolResultError("Erro ao importar: " + err.Error()), nil
	}
	if err != nil {
		return mcp.NewToolResultError("import failed: " + err.Error()), nil
	}
	return jsonResult(out), nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	return data, mimeToExt[mime], nil
}

// sanitizeFilename strips path separators and unsafe characters.
func sanitizeFilename(name string) string {
	if name == "" {
		return ""
	}
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "." {
		return ""
	}
	return name
}
