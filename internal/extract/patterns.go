// Package extract provides heuristic lexical extraction of code elements.
//
// Extraction is regex-based pattern matching over raw text, not an AST
// front end. Each supported language carries a fixed table of rules for
// the six pattern categories (class, function, interface, type alias,
// import, variable/constant) plus the extensions the language claims.
package extract

import (
	"regexp"
	"strings"
)

// Language identifies a supported language table.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangGo         Language = "go"

	// LangUnknown is the fallback tag for files no table claims.
	// Such files are skipped entirely.
	LangUnknown Language = "unknown"
)

// PatternTable holds the lexical extraction rules for one language.
//
// Rules use named capture groups with fixed meanings: name, recv,
// params, ret, extends, implements, items, source, alias, type, base.
// A nil rule means the language has no construct in that category.
type PatternTable struct {
	Language   Language
	Extensions []string

	Class     *regexp.Regexp
	Function  *regexp.Regexp
	Interface *regexp.Regexp
	TypeAlias *regexp.Regexp
	Import    *regexp.Regexp
	Variable  *regexp.Regexp

	// ExportMarker is looked for in the 10 characters preceding a
	// match to infer public visibility. Empty means constructs are
	// public by default.
	ExportMarker string

	// ConstMarker is looked for in the 10 characters preceding the
	// name capture of a variable match to classify it as a constant.
	ConstMarker string

	// UppercaseIsPublic makes identifiers starting with an uppercase
	// letter public regardless of export markers (Go-style).
	UppercaseIsPublic bool

	// UnderscoreIsPrivate makes identifiers starting with an
	// underscore private (Python convention).
	UnderscoreIsPrivate bool

	// UpperSnakeIsConst classifies ALL_CAPS variable names as
	// constants for languages without a const keyword.
	UpperSnakeIsConst bool
}

// tables is the fixed set of supported language tables, in the order
// they are consulted for extension lookup.
var tables = []*PatternTable{
	{
		Language:   LangTypeScript,
		Extensions: []string{".ts", ".tsx"},
		Class:      regexp.MustCompile(`(?m)(?:abstract\s+)?class\s+(?P<name>\w+)(?:\s+extends\s+(?P<extends>[\w.]+))?(?:\s+implements\s+(?P<implements>[\w.]+(?:\s*,\s*[\w.]+)*))?`),
		Function:   regexp.MustCompile(`(?m)(?:async\s+)?function\s*\*?\s*(?P<name>\w+)\s*\((?P<params>[^)]*)\)(?:\s*:\s*(?P<ret>[^{\n]+))?`),
		Interface:  regexp.MustCompile(`(?m)interface\s+(?P<name>\w+)(?:\s+extends\s+(?P<extends>[\w.]+(?:\s*,\s*[\w.]+)*))?`),
		TypeAlias:  regexp.MustCompile(`(?m)\btype\s+(?P<name>\w+)(?:<[^>\n]*>)?\s*=`),
		Import:     regexp.MustCompile(`(?m)^import\s+(?:(?P<items>[\w{}\s,*$]+?)\s+from\s+)?['"](?P<source>[^'"]+)['"]`),
		Variable:   regexp.MustCompile(`(?m)(?:const|let|var)\s+(?P<name>\w+)(?:\s*:\s*(?P<type>[^=;\n]+?))?\s*=`),

		ExportMarker: "export",
		ConstMarker:  "const",
	},
	{
		Language:   LangJavaScript,
		Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		Class:      regexp.MustCompile(`(?m)class\s+(?P<name>\w+)(?:\s+extends\s+(?P<extends>[\w.]+))?`),
		Function:   regexp.MustCompile(`(?m)(?:async\s+)?function\s*\*?\s*(?P<name>\w+)\s*\((?P<params>[^)]*)\)`),
		Import:     regexp.MustCompile(`(?m)^import\s+(?:(?P<items>[\w{}\s,*$]+?)\s+from\s+)?['"](?P<source>[^'"]+)['"]`),
		Variable:   regexp.MustCompile(`(?m)(?:const|let|var)\s+(?P<name>\w+)\s*=`),

		ExportMarker: "export",
		ConstMarker:  "const",
	},
	{
		Language:   LangPython,
		Extensions: []string{".py"},
		Class:      regexp.MustCompile(`(?m)^class\s+(?P<name>\w+)(?:\((?P<extends>[^)]*)\))?\s*:`),
		Function:   regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+(?P<name>\w+)\s*\((?P<params>[^)]*)\)\s*(?:->\s*(?P<ret>[^:\n]+))?:`),
		Import:     regexp.MustCompile(`(?m)^(?:from\s+(?P<source>[\w.]+)\s+)?import\s+(?P<items>[\w.]+(?:\s+as\s+\w+)?(?:\s*,\s*[\w.]+(?:\s+as\s+\w+)?)*|\*)`),
		Variable:   regexp.MustCompile(`(?m)^(?P<name>[A-Za-z_]\w*)(?:\s*:\s*(?P<type>[^=\n]+?))?\s*=\s*`),

		UnderscoreIsPrivate: true,
		UpperSnakeIsConst:   true,
	},
	{
		Language:   LangGo,
		Extensions: []string{".go"},
		Class:      regexp.MustCompile(`(?m)type\s+(?P<name>\w+)\s+struct\s*\{`),
		Function:   regexp.MustCompile(`(?m)func\s+(?:\(\s*\w+\s+\*?(?P<recv>\w+)\s*\)\s+)?(?P<name>\w+)\s*\((?P<params>[^)]*)\)\s*(?P<ret>\([^)\n]*\)|[\w*\[\].]+)?`),
		Interface:  regexp.MustCompile(`(?m)type\s+(?P<name>\w+)\s+interface\s*\{`),
		TypeAlias:  regexp.MustCompile(`(?m)type\s+(?P<name>\w+)\s+=?\s*(?P<base>[\w*\[\].]+)`),
		Import:     regexp.MustCompile(`(?m)^\s*(?:import\s+)?(?:(?P<alias>[\w.]+)\s+)?"(?P<source>[\w./\-]+)"\s*$`),
		Variable:   regexp.MustCompile(`(?m)^\s*(?:var|const)\s+(?P<name>\w+)(?:\s+(?P<type>[\w*\[\].]+))?`),

		ConstMarker:       "const",
		UppercaseIsPublic: true,
	},
}

// TableFor returns the pattern table for a language, or nil if the
// language is not supported.
func TableFor(lang Language) *PatternTable {
	for _, t := range tables {
		if t.Language == lang {
			return t
		}
	}
	return nil
}

// Languages returns all supported language tags.
func Languages() []Language {
	langs := make([]Language, 0, len(tables))
	for _, t := range tables {
		langs = append(langs, t.Language)
	}
	return langs
}

// Extensions returns the deduplicated union of file extensions claimed
// by the given languages (all supported languages when none given).
func Extensions(langs []Language) []string {
	enabled := make(map[Language]bool, len(langs))
	for _, l := range langs {
		enabled[l] = true
	}

	var exts []string
	seen := make(map[string]bool)
	for _, t := range tables {
		if len(langs) > 0 && !enabled[t.Language] {
			continue
		}
		for _, ext := range t.Extensions {
			if !seen[ext] {
				seen[ext] = true
				exts = append(exts, ext)
			}
		}
	}
	return exts
}

// Detect chooses a language for a file path by longest-suffix match
// against each enabled language's extension set. Returns LangUnknown
// when no table claims the path.
func Detect(path string, langs []Language) Language {
	enabled := make(map[Language]bool, len(langs))
	for _, l := range langs {
		enabled[l] = true
	}

	lower := strings.ToLower(path)
	best := LangUnknown
	bestLen := 0
	for _, t := range tables {
		if len(langs) > 0 && !enabled[t.Language] {
			continue
		}
		for _, ext := range t.Extensions {
			if strings.HasSuffix(lower, ext) && len(ext) > bestLen {
				best = t.Language
				bestLen = len(ext)
			}
		}
	}
	return best
}
