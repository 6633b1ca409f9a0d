// Package cmd provides CLI command implementations for semamap.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/cartograph-dev/semamap/internal/build"
	"github.com/cartograph-dev/semamap/internal/fsys"
	"github.com/cartograph-dev/semamap/internal/query"
	"github.com/cartograph-dev/semamap/internal/semantic"
	"github.com/cartograph-dev/semamap/internal/storage"
	"github.com/cartograph-dev/semamap/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// configFileName is the per-repository build configuration file.
const configFileName = "semamap.yaml"

// AnalyzeCmd builds the semantic map for a source tree.
type AnalyzeCmd struct {
	Path   string `arg:"" optional:"" default:"." help:"Path to the source tree"`
	Config string `short:"c" help:"Path to a semamap.yaml config (default: <path>/semamap.yaml)"`
}

// Run executes the analyze command.
func (c *AnalyzeCmd) Run() error {
	ctx := context.Background()
	rootPath, err := filepath.Abs(c.Path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(rootPath)
	if err != nil {
		return fmt.Errorf("accessing %s: %w", rootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", rootPath)
	}

	configPath := c.Config
	if configPath == "" {
		configPath = filepath.Join(rootPath, configFileName)
	}
	cfg, err := build.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	color.Green("Mapping %s", rootPath)

	builder := build.NewBuilder(cfg, fsys.Lister(rootPath), fsys.Reader(rootPath))
	files := 0
	builder.Subscribe(func(ev build.Event) {
		switch ev.Type {
		case build.EventFileAnalyzed:
			files++
			fmt.Printf("\r\033[KAnalyzed %d file(s): %s", files, ev.Path)
		case build.EventRelationshipsBuilt:
			fmt.Printf("\r\033[KBuilt %d relationship(s)\n", ev.Count)
		case build.EventClustersBuilt:
			fmt.Printf("Built %d cluster(s)\n", ev.Count)
		case build.EventBuildError:
			if !ev.Fatal {
				fmt.Fprintf(os.Stderr, "\nwarning: %s\n", ev.Message)
			}
		}
	})

	start := time.Now()
	m, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("building map: %w", err)
	}

	// Persist the map under .semamap/badger
	storeDir := filepath.Join(rootPath, ".semamap")
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		return fmt.Errorf("creating .semamap directory: %w", err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(filepath.Join(storeDir, "badger"), false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveMap(ctx, m); err != nil {
		return fmt.Errorf("saving map: %w", err)
	}

	stats := m.Statistics()
	meta := map[string]any{
		"version":   Version,
		"name":      filepath.Base(rootPath),
		"path":      rootPath,
		"stats":     stats,
		"mapped_at": time.Now().UTC().Format(time.RFC3339),
	}
	metaJSON, _ := json.MarshalIndent(meta, "", "  ")
	if err := os.WriteFile(filepath.Join(storeDir, "meta.json"), metaJSON, 0o644); err != nil {
		return fmt.Errorf("writing meta.json: %w", err)
	}

	color.Green("\n✓ Map complete")
	fmt.Printf("  Elements:       %d\n", stats.TotalElements)
	fmt.Printf("  Relationships:  %d\n", stats.TotalRelationships)
	fmt.Printf("  Clusters:       %d\n", stats.ClusterCount)
	fmt.Printf("  Layers:         %d\n", stats.LayerCount)
	fmt.Printf("  Concepts:       %d\n", stats.ConceptCount)
	fmt.Printf("  Duration:       %.2fs\n", time.Since(start).Seconds())

	return nil
}

// QueryCmd searches the semantic map.
type QueryCmd struct {
	Text    string   `arg:"" help:"Search text"`
	Kind    []string `short:"k" help:"Filter to element kinds (class, function, file, ...)"`
	Path    []string `short:"p" help:"Filter to file path substrings"`
	Limit   int      `short:"n" default:"20" help:"Maximum results"`
	Related bool     `short:"r" help:"Expand results to related elements"`
	Depth   int      `short:"d" default:"1" help:"Expansion depth in hops"`
}

// Run executes the query command.
func (c *QueryCmd) Run() error {
	m, closeStore, err := loadMap()
	if err != nil {
		return err
	}
	defer closeStore()

	q := query.Query{
		Text:           c.Text,
		PathContains:   c.Path,
		MaxResults:     c.Limit,
		IncludeRelated: c.Related,
		RelatedDepth:   c.Depth,
	}
	for _, k := range c.Kind {
		q.Kinds = append(q.Kinds, semantic.ElementKind(k))
	}

	res := query.NewEngine(m).Query(q)
	if len(res.Elements) == 0 {
		fmt.Println("No results found")
		return nil
	}

	for i, el := range res.Elements {
		fmt.Printf("\n%d. %s (%s)\n", i+1, el.Name, el.Kind)
		fmt.Printf("   File: %s:%d\n", el.FilePath, el.Location.StartLine)
		if score, ok := res.Scores[el.ID]; ok {
			fmt.Printf("   Relevance: %.2f\n", score)
		}
		fmt.Printf("   Id: %s\n", el.ID)
	}
	fmt.Printf("\n%d element(s) in %s\n", len(res.Elements), res.Duration.Round(time.Microsecond))

	return nil
}

// ImpactCmd shows the blast radius of changing an element.
type ImpactCmd struct {
	Element string `arg:"" help:"Element id or name to analyze"`
}

// Run executes the impact command.
func (c *ImpactCmd) Run() error {
	m, closeStore, err := loadMap()
	if err != nil {
		return err
	}
	defer closeStore()

	id, ok := findElement(m, c.Element)
	if !ok {
		fmt.Printf("Element '%s' not found in the map.\n", c.Element)
		return nil
	}

	imp := query.NewEngine(m).AnalyzeImpact(id)
	if imp == nil {
		fmt.Printf("Element '%s' not found in the map.\n", c.Element)
		return nil
	}

	fmt.Printf("## Impact Analysis for: %s\n\n", imp.Element.Name)
	switch imp.RiskLevel {
	case query.RiskCritical:
		color.Red("Risk level: %s", imp.RiskLevel)
	case query.RiskHigh:
		color.Yellow("Risk level: %s", imp.RiskLevel)
	default:
		fmt.Printf("Risk level: %s\n", imp.RiskLevel)
	}
	fmt.Println()

	printElementList("Directly Affected", imp.DirectlyAffected)
	printElementList("Transitively Affected", imp.TransitivelyAffected)
	printElementList("Affected Tests", imp.AffectedTests)

	if len(imp.Recommendations) > 0 {
		fmt.Println("### Recommendations")
		for _, rec := range imp.Recommendations {
			fmt.Printf("- %s\n", rec)
		}
	}

	return nil
}

// NavigateCmd shows ranked go-to-related suggestions for an element.
type NavigateCmd struct {
	Element string `arg:"" help:"Element id or name"`
	Limit   int    `short:"n" default:"5" help:"Maximum suggestions"`
}

// Run executes the navigate command.
func (c *NavigateCmd) Run() error {
	m, closeStore, err := loadMap()
	if err != nil {
		return err
	}
	defer closeStore()

	id, ok := findElement(m, c.Element)
	if !ok {
		fmt.Printf("Element '%s' not found in the map.\n", c.Element)
		return nil
	}

	suggestions := query.NewEngine(m).NavigationSuggestions(id, c.Limit)
	if len(suggestions) == 0 {
		fmt.Println("No related elements found. The element may be isolated.")
		return nil
	}

	for i, sug := range suggestions {
		fmt.Printf("\n%d. %s (%s) in %s\n", i+1, sug.Element.Name, sug.Element.Kind, sug.Element.FilePath)
		fmt.Printf("   %s (strength %.2f)\n", sug.Reason, sug.Strength)
	}

	return nil
}

// StatsCmd shows statistics for the stored map.
type StatsCmd struct{}

// Run executes the stats command.
func (c *StatsCmd) Run() error {
	m, closeStore, err := loadMap()
	if err != nil {
		return err
	}
	defer closeStore()

	stats := m.Statistics()
	fmt.Printf("Semantic map for %s\n", m.RootPath)
	fmt.Printf("  Updated:        %s\n", m.UpdatedAt.Format(time.RFC3339))
	fmt.Printf("  Elements:       %d\n", stats.TotalElements)
	fmt.Printf("  Relationships:  %d\n", stats.TotalRelationships)
	fmt.Printf("  Clusters:       %d (avg size %.1f)\n", stats.ClusterCount, stats.AverageClusterSize)
	fmt.Printf("  Layers:         %d\n", stats.LayerCount)
	fmt.Printf("  Concepts:       %d\n", stats.ConceptCount)

	if len(stats.ElementsByKind) > 0 {
		fmt.Println("\n  Elements by kind:")
		for kind, count := range stats.ElementsByKind {
			fmt.Printf("    %-12s %d\n", kind, count)
		}
	}

	return nil
}

// WatchCmd rebuilds the map on file changes.
type WatchCmd struct {
	Path string `arg:"" optional:"" default:"." help:"Path to the source tree"`
}

// Run executes the watch command.
func (c *WatchCmd) Run() error {
	rootPath, err := filepath.Abs(c.Path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := build.LoadConfig(filepath.Join(rootPath, configFileName))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(filepath.Join(rootPath, ".semamap", "badger"), false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	builder := build.NewBuilder(cfg, fsys.Lister(rootPath), fsys.Reader(rootPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-osSignalChannel()
		fmt.Println("\nStopping watch mode...")
		cancel()
	}()

	if _, err := builder.Build(ctx); err != nil {
		return fmt.Errorf("initial build: %w", err)
	}
	if err := store.SaveMap(ctx, builder.Map()); err != nil {
		return fmt.Errorf("saving map: %w", err)
	}

	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n", rootPath)

	err = build.Watch(ctx, rootPath, builder, func() {
		stats := builder.Map().Statistics()
		fmt.Printf("Rebuilt: %d element(s), %d relationship(s)\n", stats.TotalElements, stats.TotalRelationships)
		if err := store.SaveMap(context.Background(), builder.Map()); err != nil {
			fmt.Fprintf(os.Stderr, "saving map: %v\n", err)
		}
	})
	if err != nil && err != context.Canceled {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Println("Watch mode stopped.")
	return nil
}

// ServeCmd starts the MCP server with optional watch mode.
type ServeCmd struct {
	Watch bool `short:"w" help:"Rebuild the map on file changes"`
}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	ctx := context.Background()
	rootPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	// Note: No output to stdout - MCP server uses stdio for JSON-RPC only
	if c.Watch {
		cfg, err := build.LoadConfig(filepath.Join(rootPath, configFileName))
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		builder := build.NewBuilder(cfg, fsys.Lister(rootPath), fsys.Reader(rootPath))
		if _, err := builder.Build(ctx); err != nil {
			return fmt.Errorf("initial build: %w", err)
		}

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := build.Watch(watchCtx, rootPath, builder, nil)
			if err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
			}
		}()

		fmt.Fprintln(os.Stderr, "Starting MCP server with watch mode...")
		return mcp.NewServer(builder).Run(ctx, os.Stdin, os.Stdout)
	}

	m, closeStore, err := loadMap()
	if err != nil {
		return err
	}
	defer closeStore()

	fmt.Fprintln(os.Stderr, "Starting MCP server...")
	return mcp.NewServer(staticMap{m}).Run(ctx, os.Stdin, os.Stdout)
}

// SetupCmd configures MCP for various AI clients.
type SetupCmd struct {
	Claude   bool   `help:"Configure for Claude Code"`
	Cursor   bool   `help:"Configure for Cursor"`
	Local    bool   `help:"Create project-local configuration"`
	Global   bool   `help:"Create global configuration"`
	FilePath string `help:"Custom file path for configuration"`
}

// Run executes the setup command.
func (c *SetupCmd) Run() error {
	// If no specific client is specified, output config to stdout
	if !c.Claude && !c.Cursor {
		jsonBytes, err := json.MarshalIndent(generateServerConfig(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	if !c.Local && !c.Global {
		c.Local = true
	}

	if c.Claude {
		if err := c.writeClientConfig(".claude"); err != nil {
			return err
		}
	}
	if c.Cursor {
		if err := c.writeClientConfig(".cursor"); err != nil {
			return err
		}
	}
	return nil
}

func (c *SetupCmd) writeClientConfig(configDir string) error {
	config := generateServerConfig()

	var paths []string
	if c.Global {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = os.Getenv("HOME")
		}
		paths = append(paths, filepath.Join(homeDir, configDir, "mcp.json"))
	}
	if c.Local {
		if c.FilePath != "" {
			paths = append(paths, filepath.Join(c.FilePath, "mcp.json"))
		} else {
			paths = append(paths, filepath.Join(".", configDir, "mcp.json"))
		}
	}

	for _, configPath := range paths {
		if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
		content, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		content = append(content, '\n')
		if err := os.WriteFile(configPath, content, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		color.Green("✓ Created MCP config at %s", configPath)
	}
	return nil
}

func generateServerConfig() map[string]any {
	return map[string]any{
		"mcpServers": map[string]any{
			"semamap": map[string]any{
				"command": "semamap",
				"args":    []string{"serve", "--watch"},
			},
		},
	}
}

// CleanCmd deletes the stored map for the current repository.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run() error {
	rootPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	storeDir := filepath.Join(rootPath, ".semamap")
	if _, err := os.Stat(storeDir); os.IsNotExist(err) {
		return fmt.Errorf("no map found at %s. Nothing to clean", rootPath)
	}

	if !c.Force {
		fmt.Printf("Delete map at %s? [y/N] ", storeDir)
		var response string
		_, _ = fmt.Scanln(&response)
		if !strings.EqualFold(response, "y") {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(storeDir); err != nil {
		return fmt.Errorf("deleting map: %w", err)
	}

	color.Green("Deleted %s", storeDir)
	return nil
}

// Helper functions

// staticMap adapts a loaded map to the MCP server's provider interface.
type staticMap struct {
	m *semantic.SemanticMap
}

func (s staticMap) Map() *semantic.SemanticMap { return s.m }

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

// loadMap opens the current repository's stored map read-only. The
// returned closer releases the underlying store.
func loadMap() (*semantic.SemanticMap, func(), error) {
	rootPath, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("getting working directory: %w", err)
	}

	dbPath := filepath.Join(rootPath, ".semamap", "badger")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("no map found at %s. Run 'semamap analyze' first", rootPath)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, true); err != nil {
		return nil, nil, fmt.Errorf("initializing storage: %w", err)
	}

	m, err := store.LoadMap(context.Background())
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("loading map: %w", err)
	}
	if m == nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("store at %s holds no map. Run 'semamap analyze' first", dbPath)
	}

	return m, func() { _ = store.Close() }, nil
}

// findElement resolves an element by id, then exact name, then name
// substring.
func findElement(m *semantic.SemanticMap, element string) (string, bool) {
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
	return substringMatch, substringMatch != ""
}

func printElementList(title string, els []*semantic.CodeElement) {
	if len(els) == 0 {
		return
	}
	fmt.Printf("### %s (%d)\n", title, len(els))
	for _, el := range els {
		fmt.Printf("- %s (%s) in %s\n", el.Name, el.Kind, el.FilePath)
	}
	fmt.Println()
}

// CLI is the root Kong command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`
	Verbose bool             `short:"v" help:"Enable verbose output"`
	Quiet   bool             `short:"q" help:"Suppress non-essential output"`

	// Commands
	Analyze  AnalyzeCmd  `cmd:"" help:"Build the semantic map for a source tree"`
	Query    QueryCmd    `cmd:"" help:"Search the semantic map"`
	Impact   ImpactCmd   `cmd:"" help:"Show blast radius of changing an element"`
	Navigate NavigateCmd `cmd:"" help:"Show go-to-related suggestions for an element"`
	Stats    StatsCmd    `cmd:"" help:"Show statistics for the stored map"`
	Watch    WatchCmd    `cmd:"" help:"Rebuild the map on file changes"`
	Serve    ServeCmd    `cmd:"" help:"Start MCP server (stdio transport)"`
	Setup    SetupCmd    `cmd:"" help:"Configure MCP for Claude Code / Cursor"`
	Clean    CleanCmd    `cmd:"" help:"Delete the stored map for the current repository"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	kongCtx := kong.Parse(c,
		kong.Name("semamap"),
		kong.Description("Semantic code map engine: build, query, and analyze a map of your codebase"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	return kongCtx.Run()
}
