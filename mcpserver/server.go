// Package mcpserver exposes content listings as MCP tools over stdio.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	contentfs "github.com/jackfish212/contentfs"
	"github.com/jackfish212/contentfs/acl"
	"github.com/jackfish212/contentfs/lister"
)

// Server implements the MCP protocol over stdio. Every tool call runs as
// the user the server was created for, so ACL rules apply to the session.
type Server struct {
	lister *lister.ContentLister
	disks  *contentfs.DiskTable
	user   string
	info   contentfs.VersionInfo
}

// New creates an MCP server. An empty user makes the session anonymous.
func New(l *lister.ContentLister, disks *contentfs.DiskTable, user string) *Server {
	return &Server{
		lister: l,
		disks:  disks,
		user:   user,
		info:   contentfs.GetVersionInfo(),
	}
}

// Run starts the MCP server, reading JSON-RPC messages from in and writing
// responses to out. It blocks until in is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	enc := json.NewEncoder(out)

	if s.user != "" {
		ctx = acl.WithUser(ctx, s.user)
	}
	slog.Info("mcp: server started", "version", s.info.Version, "user", s.user)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			slog.Info("mcp: context cancelled")
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req jsonRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			slog.Warn("mcp: invalid JSON-RPC message", "error", err)
			if err := enc.Encode(errorResponse(nil, errCodeParse, "Parse error")); err != nil {
				return fmt.Errorf("write error: %w", err)
			}
			continue
		}

		resp := s.dispatch(ctx, &req)
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write error: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stdin read error: %w", err)
	}

	slog.Info("mcp: stdin closed, shutting down")
	return nil
}

func (s *Server) dispatch(ctx context.Context, req *jsonRPCRequest) *jsonRPCResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized", "initialized":
		return nil
	case "tools/list":
		return resultResponse(req.ID, toolsListResult{Tools: toolDefs})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return resultResponse(req.ID, map[string]any{})
	default:
		slog.Debug("mcp: unknown method", "method", req.Method)
		if req.ID != nil {
			return errorResponse(req.ID, errCodeMethodNotFound, "Method not found: "+req.Method)
		}
		return nil
	}
}

// ─── Handlers ───

func (s *Server) handleInitialize(req *jsonRPCRequest) *jsonRPCResponse {
	var params initializeParams
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	slog.Info("mcp: client connected",
		"client", params.ClientInfo.Name,
		"clientVersion", params.ClientInfo.Version,
		"protocolVersion", params.ProtocolVersion,
	)

	return resultResponse(req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    serverCapabilities{Tools: &struct{}{}},
		ServerInfo:      serverInfo{Name: "contentfs", Version: s.info.Version},
		Instructions:    "Disks: " + strings.Join(s.disks.Names(), ", "),
	})
}

func (s *Server) handleToolsCall(ctx context.Context, req *jsonRPCRequest) *jsonRPCResponse {
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, errCodeInvalidParams, "Invalid params: "+err.Error())
	}

	tool, ok := tools[params.Name]
	if !ok {
		return errorResponse(req.ID, errCodeInvalidParams, "Unknown tool: "+params.Name)
	}

	args := toolArgs(params.Arguments)
	if tool.needsDisk && args.str("disk") == "" {
		return resultResponse(req.ID, errorResult("disk is required"))
	}

	slog.Debug("mcp: tool call", "tool", params.Name, "arguments", params.Arguments)
	text, err := tool.run(s, ctx, args)
	if err != nil {
		return resultResponse(req.ID, errorResult(err.Error()))
	}
	return resultResponse(req.ID, textResult(text))
}

// ─── Tools ───

type toolArgs map[string]any

func (a toolArgs) str(key string) string {
	v, _ := a[key].(string)
	return v
}

func (a toolArgs) path() string { return contentfs.CleanPath(a.str("path")) }

type tool struct {
	def       toolDef
	needsDisk bool
	run       func(s *Server, ctx context.Context, args toolArgs) (string, error)
}

func listingSchema(withSearch bool, extra map[string]any) map[string]any {
	props := map[string]any{
		"disk": map[string]any{"type": "string", "description": "Disk name"},
		"path": map[string]any{"type": "string", "description": "Path inside the disk; empty for the root"},
	}
	if withSearch {
		props["search"] = map[string]any{"type": "string", "description": "Case-insensitive substring filter"}
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]any{"type": "object", "properties": props, "required": []string{"disk"}}
}

var tools = map[string]tool{
	"list_content": {
		def: toolDef{
			Name:        "list_content",
			Description: "List one directory level of a disk. Directories are searched by path, files by name.",
			InputSchema: listingSchema(true, map[string]any{
				"only": map[string]any{"type": "string", "enum": []string{"directories", "files"}},
			}),
		},
		needsDisk: true,
		run:       (*Server).listContent,
	},
	"directory_tree": {
		def: toolDef{
			Name:        "directory_tree",
			Description: "List the directories under a path and whether each has subdirectories.",
			InputSchema: listingSchema(true, nil),
		},
		needsDisk: true,
		run:       (*Server).directoryTree,
	},
	"file_properties": {
		def: toolDef{
			Name:        "file_properties",
			Description: "Show the metadata of a file.",
			InputSchema: listingSchema(false, nil),
		},
		needsDisk: true,
		run:       (*Server).fileProperties,
	},
	"directory_properties": {
		def: toolDef{
			Name:        "directory_properties",
			Description: "Show the metadata of a directory.",
			InputSchema: listingSchema(false, nil),
		},
		needsDisk: true,
		run:       (*Server).directoryProperties,
	},
	"list_disks": {
		def: toolDef{
			Name:        "list_disks",
			Description: "List the configured disks.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		run: (*Server).listDisks,
	},
}

var toolDefs = func() []toolDef {
	defs := make([]toolDef, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}()

func (s *Server) listContent(ctx context.Context, args toolArgs) (string, error) {
	disk, path, search := args.str("disk"), args.path(), args.str("search")
	var entries []contentfs.Entry
	switch args.str("only") {
	case "directories":
		dirs, err := s.lister.DirectoriesWithProperties(ctx, disk, path, search)
		if err != nil {
			return "", err
		}
		entries = dirs
	case "files":
		files, err := s.lister.FilesWithProperties(ctx, disk, path)
		if err != nil {
			return "", err
		}
		entries = files
	case "":
		listing, err := s.lister.Content(ctx, disk, path, search)
		if err != nil {
			return "", err
		}
		entries = append(listing.Directories, listing.Files...)
	default:
		return "", fmt.Errorf("only must be directories or files, got %q", args.str("only"))
	}
	return formatListing(entries), nil
}

func (s *Server) directoryTree(ctx context.Context, args toolArgs) (string, error) {
	dirs, err := s.lister.DirectoryTree(ctx, args.str("disk"), args.path(), args.str("search"))
	if err != nil {
		return "", err
	}
	if len(dirs) == 0 {
		return "(no directories)", nil
	}
	var b strings.Builder
	for _, d := range dirs {
		marker := "  "
		if d.Props != nil && d.Props.HasSubdirectories {
			marker = "+ "
		}
		b.WriteString(marker + d.Path + "/" + aclSuffix(d) + "\n")
	}
	return b.String(), nil
}

func (s *Server) fileProperties(ctx context.Context, args toolArgs) (string, error) {
	e, err := s.lister.FileProperties(ctx, args.str("disk"), args.path())
	if err != nil {
		return "", err
	}
	return formatProperties(*e), nil
}

func (s *Server) directoryProperties(ctx context.Context, args toolArgs) (string, error) {
	e, err := s.lister.DirectoryProperties(ctx, args.str("disk"), args.path())
	if err != nil {
		return "", err
	}
	return formatProperties(*e), nil
}

func (s *Server) listDisks(_ context.Context, _ toolArgs) (string, error) {
	infos := s.disks.AllInfo()
	if len(infos) == 0 {
		return "(no disks)", nil
	}
	var b strings.Builder
	for _, d := range infos {
		fmt.Fprintf(&b, "%s  %-8s %-8s %s\n", d.Permissions, d.Name, d.Kind, d.Source)
	}
	return b.String(), nil
}

// ─── Formatting ───

func formatListing(entries []contentfs.Entry) string {
	if len(entries) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	for _, e := range entries {
		kind, size := "-", ""
		name := e.Basename
		if e.IsDir() {
			kind, name = "d", name+"/"
		} else {
			size = humanize.IBytes(uint64(e.Size()))
		}
		date := ""
		if t, ok := modTime(e); ok {
			date = t.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(&b, "%s %9s  %-16s  %s%s\n", kind, size, date, name, aclSuffix(e))
	}
	return b.String()
}

func formatProperties(e contentfs.Entry) string {
	lines := []string{
		"path: " + e.Path,
		"type: " + string(e.Type),
		"basename: " + e.Basename,
	}
	if e.Dirname != nil {
		lines = append(lines, "dirname: "+*e.Dirname)
	}
	if e.Extension != nil {
		lines = append(lines, "extension: "+*e.Extension)
	}
	if e.Filename != nil {
		lines = append(lines, "filename: "+*e.Filename)
	}
	if e.ACL != nil {
		lines = append(lines, fmt.Sprintf("acl: %d", *e.ACL))
	}

	keys := make([]string, 0, len(e.Meta))
	for k := range e.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch k {
		case "size":
			lines = append(lines, fmt.Sprintf("size: %s (%s bytes)", humanize.IBytes(uint64(e.Size())), humanize.Comma(e.Size())))
		case "timestamp":
			if t, ok := modTime(e); ok {
				lines = append(lines, "timestamp: "+t.Format(time.RFC3339)+" ("+humanize.Time(t)+")")
			}
		default:
			lines = append(lines, fmt.Sprintf("%s: %v", k, e.Meta[k]))
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

func modTime(e contentfs.Entry) (time.Time, bool) {
	switch v := e.Meta["timestamp"].(type) {
	case int64:
		return time.Unix(v, 0), true
	case float64:
		return time.Unix(int64(v), 0), true
	}
	return time.Time{}, false
}

func aclSuffix(e contentfs.Entry) string {
	if e.ACL == nil {
		return ""
	}
	return fmt.Sprintf("  [acl=%d]", *e.ACL)
}
