// Package build provides the semantic map construction pipeline.
package build

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cartograph-dev/semamap/internal/extract"
)

// Config controls a map build. Zero values fall back to defaults via
// Normalize.
type Config struct {
	// IncludePaths are the roots to scan. Default: ["."].
	IncludePaths []string `yaml:"includePaths"`

	// ExcludePaths are substrings that drop a discovered path.
	ExcludePaths []string `yaml:"excludePaths"`

	// Languages selects which language tables to consider.
	Languages []extract.Language `yaml:"languages"`

	// AnalyzeImports gates the import-resolution relationship pass.
	AnalyzeImports bool `yaml:"analyzeImports"`

	// AnalyzeCalls is reserved; accepted but not yet wired to a pass.
	AnalyzeCalls bool `yaml:"analyzeCalls"`

	// AnalyzeTypes gates the heuristic type-usage pass.
	AnalyzeTypes bool `yaml:"analyzeTypes"`

	// BuildClusters gates cluster derivation.
	BuildClusters bool `yaml:"buildClusters"`

	// MinClusterSize is the minimum directory group size that becomes
	// a cluster. Default 3.
	MinClusterSize int `yaml:"minClusterSize"`

	// MaxClusterCount is reserved; accepted but not enforced.
	MaxClusterCount int `yaml:"maxClusterCount"`

	// SimilarityThreshold is the keyword Jaccard similarity above
	// which two clusters merge. Default 0.3.
	SimilarityThreshold float64 `yaml:"similarityThreshold"`

	// UseEmbeddings is reserved, unused.
	UseEmbeddings bool `yaml:"useEmbeddings"`

	// CacheEnabled is reserved, unused.
	CacheEnabled bool `yaml:"cacheEnabled"`

	// Concurrency bounds the extraction worker pool. 0 means the
	// number of CPUs.
	Concurrency int `yaml:"concurrency"`
}

// DefaultExcludePaths are the path substrings excluded from discovery
// unless overridden.
var DefaultExcludePaths = []string{"node_modules", "dist", "build", ".git", "coverage"}

// DefaultConfig returns the default build configuration.
func DefaultConfig() Config {
	return Config{
		IncludePaths:        []string{"."},
		ExcludePaths:        append([]string(nil), DefaultExcludePaths...),
		Languages:           []extract.Language{extract.LangTypeScript, extract.LangJavaScript, extract.LangPython, extract.LangGo},
		AnalyzeImports:      true,
		AnalyzeTypes:        true,
		BuildClusters:       true,
		MinClusterSize:      3,
		MaxClusterCount:     50,
		SimilarityThreshold: 0.3,
	}
}

// Normalize fills unset collection and numeric fields with defaults.
// Boolean gates are left as given.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if len(c.IncludePaths) == 0 {
		c.IncludePaths = def.IncludePaths
	}
	if c.ExcludePaths == nil {
		c.ExcludePaths = def.ExcludePaths
	}
	if len(c.Languages) == 0 {
		c.Languages = def.Languages
	}
	if c.MinClusterSize <= 0 {
		c.MinClusterSize = def.MinClusterSize
	}
	if c.MaxClusterCount <= 0 {
		c.MaxClusterCount = def.MaxClusterCount
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = def.SimilarityThreshold
	}
	return c
}

// LoadConfig reads a YAML config file and merges it over the defaults.
// A missing file yields the defaults without error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg.Normalize(), nil
}
