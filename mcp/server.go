// Package mcp provides the MCP (Model Context Protocol) server for the
// semantic map engine.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cartograph-dev/semamap/internal/query"
	"github.com/cartograph-dev/semamap/internal/semantic"
)

// MapProvider supplies the current semantic map. The build engine's
// Builder satisfies this; a rebuild swaps the map the server sees.
type MapProvider interface {
	Map() *semantic.SemanticMap
}

// Server represents the MCP server.
type Server struct {
	maps   MapProvider
	server *mcp.Server
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server over the given map provider.
func NewServer(maps MapProvider) *Server {
	s := &Server{maps: maps}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "semamap",
		Version: "0.1.0",
	}, nil)

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "semamap_query",
			Description: "Search the semantic map. Returns elements ranked by relevance, optionally expanded to related elements.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"text":           {Type: "string", Description: "Free-text search terms"},
					"kinds":          {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Element kinds to include (class, function, file, ...)"},
					"pathContains":   {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "File path substrings to filter on"},
					"maxResults":     {Type: "integer", Description: "Maximum number of elements returned"},
					"includeRelated": {Type: "boolean", Description: "Expand results to related elements"},
					"relatedDepth":   {Type: "integer", Description: "Expansion depth in hops (default 1)"},
				},
			},
		},
		{
			Name:        "semamap_impact",
			Description: "Blast radius analysis: what breaks if a given element changes, with risk level and recommendations.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"element": {Type: "string", Description: "Element id or name to analyze"},
				},
				Required: []string{"element"},
			},
		},
		{
			Name:        "semamap_navigate",
			Description: "Ranked go-to-related suggestions for an element, strongest relationships first.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"element": {Type: "string", Description: "Element id or name"},
					"limit":   {Type: "integer", Description: "Maximum number of suggestions (default 5)"},
				},
				Required: []string{"element"},
			},
		},
		{
			Name:        "semamap_stats",
			Description: "Statistics for the current map: element and relationship counts by kind, clusters, layers, concepts.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "semamap://overview",
			Name:        "Map Overview",
			Description: "High-level statistics about the current semantic map",
			MimeType:    "text/plain",
		},
		{
			URI:         "semamap://layers",
			Name:        "Architectural Layers",
			Description: "Layers inferred from path conventions, with inter-layer dependencies",
			MimeType:    "text/plain",
		},
		{
			URI:         "semamap://concepts",
			Name:        "Code Concepts",
			Description: "Recurring name fragments mined across the codebase",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	m := s.maps.Map()
	if m == nil {
		return "No map built yet. Run an analysis first.", nil
	}
	engine := query.NewEngine(m)

	switch name {
	case "semamap_query":
		return handleQuery(engine, args)
	case "semamap_impact":
		element, _ := args["element"].(string)
		return handleImpact(m, engine, element)
	case "semamap_navigate":
		element, _ := args["element"].(string)
		limit, _ := args["limit"].(float64)
		return handleNavigate(m, engine, element, int(limit))
	case "semamap_stats":
		return formatStats(m), nil
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	m := s.maps.Map()
	if m == nil {
		return "No map built yet. Run an analysis first.", nil
	}

	switch uri {
	case "semamap://overview":
		return formatStats(m), nil
	case "semamap://layers":
		return formatLayers(m), nil
	case "semamap://concepts":
		return formatConcepts(m), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run starts the MCP server with stdio transport.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// Note: Do NOT use SetIndent - MCP protocol requires compact JSON (one line per message)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]any{
				"name":    "semamap",
				"version": "0.1.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]any{
					"listChanged": false,
				},
				"resources": map[string]any{
					"listChanged": false,
				},
			},
		},
	}
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema, _ := json.Marshal(tool.InputSchema)
		var schemaMap map[string]any
		json.Unmarshal(schema, &schemaMap)

		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schemaMap,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"tools": toolList,
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": result,
				},
			},
		},
	}
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"resources": resourceList,
		},
	}
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)

	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"contents": []map[string]any{
				{
					"uri":      uri,
					"mimeType": "text/plain",
					"text":     content,
				},
			},
		},
	}
}

// Tool Handlers

func handleQuery(engine *query.Engine, args map[string]any) (string, error) {
	q := query.Query{}
	q.Text, _ = args["text"].(string)
	for _, k := range stringList(args["kinds"]) {
		q.Kinds = append(q.Kinds, semantic.ElementKind(k))
	}
	q.PathContains = stringList(args["pathContains"])
	if maxResults, ok := args["maxResults"].(float64); ok {
		q.MaxResults = int(maxResults)
	}
	q.IncludeRelated, _ = args["includeRelated"].(bool)
	if depth, ok := args["relatedDepth"].(float64); ok {
		q.RelatedDepth = int(depth)
	}

	res := engine.Query(q)
	if len(res.Elements) == 0 {
		return "No results found", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d element(s):\n\n", len(res.Elements)))
	for i, el := range res.Elements {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%s)\n", i+1, el.Name, el.Kind))
		sb.WriteString(fmt.Sprintf("   File: %s:%d\n", el.FilePath, el.Location.StartLine))
		if score, ok := res.Scores[el.ID]; ok {
			sb.WriteString(fmt.Sprintf("   Relevance: %.2f\n", score))
		}
		sb.WriteString(fmt.Sprintf("   Id: %s\n\n", el.ID))
	}
	if len(res.Relationships) > 0 {
		sb.WriteString(fmt.Sprintf("Traversed %d relationship(s) during expansion.\n\n", len(res.Relationships)))
	}
	sb.WriteString("Next: Use `semamap_impact` before changing any of these elements.")
	return sb.String(), nil
}

func handleImpact(m *semantic.SemanticMap, engine *query.Engine, element string) (string, error) {
	if element == "" {
		return "No element provided", nil
	}

	id, ok := resolveElementID(m, element)
	if !ok {
		return fmt.Sprintf("Element '%s' not found in map", element), nil
	}

	imp := engine.AnalyzeImpact(id)
	if imp == nil {
		return fmt.Sprintf("Element '%s' not found in map", element), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Impact analysis for: **%s**\n\n", imp.Element.Name))
	sb.WriteString(fmt.Sprintf("Risk level: **%s**\n\n", imp.RiskLevel))

	writeElementSection(&sb, "Directly Affected", imp.DirectlyAffected)
	writeElementSection(&sb, "Transitively Affected", imp.TransitivelyAffected)
	writeElementSection(&sb, "Affected Tests", imp.AffectedTests)

	if len(imp.Recommendations) > 0 {
		sb.WriteString("## Recommendations\n")
		for _, rec := range imp.Recommendations {
			sb.WriteString(fmt.Sprintf("- %s\n", rec))
		}
	}
	return sb.String(), nil
}

func handleNavigate(m *semantic.SemanticMap, engine *query.Engine, element string, limit int) (string, error) {
	if element == "" {
		return "No element provided", nil
	}

	id, ok := resolveElementID(m, element)
	if !ok {
		return fmt.Sprintf("Element '%s' not found in map", element), nil
	}

	suggestions := engine.NavigationSuggestions(id, limit)
	if len(suggestions) == 0 {
		return "No related elements found. The element may be isolated.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Navigation suggestions (%d):\n\n", len(suggestions)))
	for i, sug := range suggestions {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%s) in %s\n", i+1, sug.Element.Name, sug.Element.Kind, sug.Element.FilePath))
		sb.WriteString(fmt.Sprintf("   %s (strength %.2f)\n\n", sug.Reason, sug.Strength))
	}
	return sb.String(), nil
}

func writeElementSection(sb *strings.Builder, title string, els []*semantic.CodeElement) {
	if len(els) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("## %s (%d)\n", title, len(els)))
	for _, el := range els {
		sb.WriteString(fmt.Sprintf("- %s (%s) in %s\n", el.Name, el.Kind, el.FilePath))
	}
	sb.WriteString("\n")
}

// resolveElementID accepts either an element id or a name. Exact id
// wins, then exact name, then name substring.
func resolveElementID(m *semantic.SemanticMap, element string) (string, bool) {
	if m.HasElement(element) {
		return element, true
	}

	var substringMatch string
	lower := strings.ToLower(element)
	for _, el := range m.Elements() {
		if el.Name == element {
			return el.ID, true
		}
		if substringMatch == "" && strings.Contains(strings.ToLower(el.Name), lower) {
			substringMatch = el.ID
		}
	}
	if substringMatch != "" {
		return substringMatch, true
	}
	return "", false
}

// Resource Handlers

func formatStats(m *semantic.SemanticMap) string {
	stats := m.Statistics()

	var sb strings.Builder
	sb.WriteString("# Semantic Map Overview\n\n")
	sb.WriteString(fmt.Sprintf("**Root:** %s\n", m.RootPath))
	sb.WriteString(fmt.Sprintf("**Elements:** %d\n", stats.TotalElements))
	sb.WriteString(fmt.Sprintf("**Relationships:** %d\n", stats.TotalRelationships))
	sb.WriteString(fmt.Sprintf("**Clusters:** %d (avg size %.1f)\n", stats.ClusterCount, stats.AverageClusterSize))
	sb.WriteString(fmt.Sprintf("**Layers:** %d\n", stats.LayerCount))
	sb.WriteString(fmt.Sprintf("**Concepts:** %d\n", stats.ConceptCount))

	sb.WriteString("\n## Elements by Kind\n\n")
	for _, kind := range sortedKeys(stats.ElementsByKind) {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", kind, stats.ElementsByKind[kind]))
	}

	sb.WriteString("\n## Relationships by Type\n\n")
	for _, t := range sortedKeys(stats.RelationshipsByType) {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", t, stats.RelationshipsByType[t]))
	}
	return sb.String()
}

func formatLayers(m *semantic.SemanticMap) string {
	layers := m.Layers()
	if len(layers) == 0 {
		return "No architectural layers identified.\n"
	}

	var sb strings.Builder
	sb.WriteString("# Architectural Layers\n\n")
	for _, layer := range layers {
		sb.WriteString(fmt.Sprintf("## %s (level %d)\n", layer.Name, layer.Level))
		sb.WriteString(fmt.Sprintf("Elements: %d\n", len(layer.Elements)))
		if len(layer.DependsOn) > 0 {
			sb.WriteString(fmt.Sprintf("Depends on: %s\n", strings.Join(layer.DependsOn, ", ")))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatConcepts(m *semantic.SemanticMap) string {
	concepts := m.Concepts()
	if len(concepts) == 0 {
		return "No concepts mined.\n"
	}

	sort.Slice(concepts, func(i, j int) bool {
		return concepts[i].Frequency > concepts[j].Frequency
	})

	var sb strings.Builder
	sb.WriteString("# Code Concepts\n\n")
	for _, c := range concepts {
		sb.WriteString(fmt.Sprintf("- **%s**: %d occurrences, importance %.2f, %d related element(s)\n",
			c.Name, c.Frequency, c.Importance, len(c.Elements)))
	}
	return sb.String()
}

// Helper functions

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
