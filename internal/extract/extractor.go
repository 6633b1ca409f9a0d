package extract

import (
	"path"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

// visibilityWindow is how many characters before a match are scanned
// for export and const markers.
const visibilityWindow = 10

// Extract runs the language's pattern table against one file's content
// and returns the discovered elements: one file element plus one
// element per matched construct.
//
// Extraction never fails: capture groups that did not participate in a
// match flow into empty metadata values, not errors. Files whose
// language is unknown yield nil.
func Extract(filePath, content string, lang Language) []*semantic.CodeElement {
	table := TableFor(lang)
	if table == nil {
		return nil
	}

	fc := &fileContext{
		path:     filePath,
		content:  content,
		table:    table,
		starts:   lineStarts(content),
		testFile: isTestPath(filePath),
	}

	elements := []*semantic.CodeElement{fc.fileElement()}
	elements = append(elements, fc.classes()...)
	elements = append(elements, fc.functions()...)
	elements = append(elements, fc.interfaces()...)
	elements = append(elements, fc.typeAliases()...)
	elements = append(elements, fc.imports()...)
	elements = append(elements, fc.variables()...)
	return elements
}

// fileContext carries per-file extraction state.
type fileContext struct {
	path     string
	content  string
	table    *PatternTable
	starts   []int
	testFile bool
}

func (fc *fileContext) fileElement() *semantic.CodeElement {
	lines := strings.Count(fc.content, "\n") + 1
	return &semantic.CodeElement{
		ID:            semantic.ElementID(semantic.KindFile, fc.path, ""),
		Kind:          semantic.KindFile,
		Name:          path.Base(fc.path),
		QualifiedName: fc.path,
		FilePath:      fc.path,
		Location:      semantic.Location{StartLine: 1, EndLine: lines},
		Language:      string(fc.table.Language),
		Visibility:    semantic.VisibilityPublic,
		Metadata:      map[string]any{"size": len(fc.content)},
	}
}

func (fc *fileContext) classes() []*semantic.CodeElement {
	var out []*semantic.CodeElement
	for _, m := range matchAll(fc.table.Class, fc.content) {
		name := m.group("name")
		if name == "" {
			continue
		}

		// The extends capture may hold a comma-separated base list
		// (Python); the first entry is the superclass, the rest join
		// the implemented-interface list.
		bases := splitNames(m.group("extends"))
		var super string
		var impls []string
		if len(bases) > 0 {
			super = bases[0]
			impls = append(impls, bases[1:]...)
		}
		impls = append(impls, splitNames(m.group("implements"))...)

		md := map[string]any{}
		if super != "" {
			md["extends"] = super
		}
		if len(impls) > 0 {
			md["implements"] = impls
		}

		out = append(out, fc.element(semantic.KindClass, name, m, md))
	}
	return out
}

func (fc *fileContext) functions() []*semantic.CodeElement {
	var out []*semantic.CodeElement
	for _, m := range matchAll(fc.table.Function, fc.content) {
		name := m.group("name")
		if name == "" {
			continue
		}

		kind := semantic.KindFunction
		md := map[string]any{
			"params": splitNames(m.group("params")),
		}

		// Go-style tables capture a method receiver; when present the
		// receiver's type becomes the element name and the kind is
		// method. The declared function name stays in metadata.
		if recv := m.group("recv"); recv != "" {
			kind = semantic.KindMethod
			md["receiver"] = recv
			md["method"] = name
			name = recv
		}

		if ret := strings.TrimSpace(m.group("ret")); ret != "" {
			md["returnType"] = ret
		}

		if fc.testFile {
			kind = semantic.KindTest
		}

		el := fc.element(kind, name, m, md)
		el.Signature = signatureText(fc.content, m)
		out = append(out, el)
	}
	return out
}

func (fc *fileContext) interfaces() []*semantic.CodeElement {
	var out []*semantic.CodeElement
	for _, m := range matchAll(fc.table.Interface, fc.content) {
		name := m.group("name")
		if name == "" {
			continue
		}

		md := map[string]any{}
		if extends := splitNames(m.group("extends")); len(extends) > 0 {
			md["extends"] = extends
		}

		el := fc.element(semantic.KindInterface, name, m, md)
		el.Visibility = semantic.VisibilityPublic
		out = append(out, el)
	}
	return out
}

func (fc *fileContext) typeAliases() []*semantic.CodeElement {
	var out []*semantic.CodeElement
	for _, m := range matchAll(fc.table.TypeAlias, fc.content) {
		name := m.group("name")
		if name == "" {
			continue
		}

		// The Go alias rule also matches struct and interface
		// declarations, which the class and interface rules own.
		if base := m.group("base"); base == "struct" || base == "interface" {
			continue
		}

		el := fc.element(semantic.KindType, name, m, map[string]any{})
		el.Visibility = semantic.VisibilityPublic
		out = append(out, el)
	}
	return out
}

func (fc *fileContext) imports() []*semantic.CodeElement {
	var out []*semantic.CodeElement
	for _, m := range matchAll(fc.table.Import, fc.content) {
		source := m.group("source")
		items := splitImportItems(m.group("items"))
		if alias := m.group("alias"); alias != "" {
			items = append(items, alias)
		}

		// Plain "import foo" style has no separate source capture;
		// the first imported item is the module itself.
		if source == "" {
			if len(items) == 0 {
				continue
			}
			source = items[0]
		}

		line, col := lineColAt(fc.starts, m.start)
		out = append(out, &semantic.CodeElement{
			ID:            semantic.ElementID(semantic.KindImport, fc.path, source),
			Kind:          semantic.KindImport,
			Name:          importName(source),
			QualifiedName: fc.path + ":" + source,
			FilePath:      fc.path,
			Location:      semantic.Location{StartLine: line, EndLine: line, StartColumn: col},
			Language:      string(fc.table.Language),
			Visibility:    semantic.VisibilityPublic,
			Metadata:      map[string]any{"source": source, "items": items},
		})
	}
	return out
}

func (fc *fileContext) variables() []*semantic.CodeElement {
	var out []*semantic.CodeElement
	for _, m := range matchAll(fc.table.Variable, fc.content) {
		name := m.group("name")
		if name == "" {
			continue
		}

		kind := semantic.KindVariable
		if fc.isConstant(name, m) {
			kind = semantic.KindConstant
		}

		md := map[string]any{}
		if typ := strings.TrimSpace(m.group("type")); typ != "" {
			md["type"] = typ
		}

		out = append(out, fc.element(kind, name, m, md))
	}
	return out
}

// isConstant reports whether a variable match is a constant: the
// characters preceding the name capture contain the const marker, or
// the name is ALL_CAPS in languages without a const keyword.
func (fc *fileContext) isConstant(name string, m *match) bool {
	if fc.table.ConstMarker != "" {
		w := preceding(fc.content, m.groupStart("name"))
		if strings.Contains(w, fc.table.ConstMarker) {
			return true
		}
	}
	if fc.table.UpperSnakeIsConst {
		upper := strings.ToUpper(name)
		if name == upper && upper != strings.ToLower(name) {
			return true
		}
	}
	return false
}

// element assembles a CodeElement common to most pattern categories.
func (fc *fileContext) element(kind semantic.ElementKind, name string, m *match, md map[string]any) *semantic.CodeElement {
	line, col := lineColAt(fc.starts, m.start)
	return &semantic.CodeElement{
		ID:            semantic.ElementID(kind, fc.path, name),
		Kind:          kind,
		Name:          name,
		QualifiedName: fc.path + ":" + name,
		FilePath:      fc.path,
		Location:      semantic.Location{StartLine: line, EndLine: line, StartColumn: col},
		Language:      string(fc.table.Language),
		Visibility:    fc.visibility(name, m.start),
		Metadata:      md,
	}
}

// visibility infers an element's access level: the export marker in the
// characters preceding the match makes it public, with language
// overrides for Go-style uppercase identifiers and Python underscore
// prefixes.
func (fc *fileContext) visibility(name string, matchStart int) semantic.Visibility {
	t := fc.table
	if t.UppercaseIsPublic {
		r, _ := utf8.DecodeRuneInString(name)
		if unicode.IsUpper(r) {
			return semantic.VisibilityPublic
		}
		return semantic.VisibilityPrivate
	}
	if t.UnderscoreIsPrivate && strings.HasPrefix(name, "_") {
		return semantic.VisibilityPrivate
	}
	if t.ExportMarker == "" {
		return semantic.VisibilityPublic
	}
	if strings.Contains(preceding(fc.content, matchStart), t.ExportMarker) {
		return semantic.VisibilityPublic
	}
	return semantic.VisibilityPrivate
}

// match is one regex match with named-group access.
type match struct {
	re      *regexpRef
	idx     []int
	start   int
	end     int
	content string
}

type regexpRef struct {
	groups map[string]int
}

// matchAll runs a rule across the whole text. A nil rule yields no
// matches.
func matchAll(re *regexp.Regexp, content string) []*match {
	if re == nil {
		return nil
	}
	groups := make(map[string]int)
	for i, n := range re.SubexpNames() {
		if n != "" {
			groups[n] = i
		}
	}
	ref := &regexpRef{groups: groups}

	var out []*match
	for _, idx := range re.FindAllStringSubmatchIndex(content, -1) {
		out = append(out, &match{
			re:      ref,
			idx:     idx,
			start:   idx[0],
			end:     idx[1],
			content: content,
		})
	}
	return out
}

// group returns a named capture's text, or "" when the group did not
// participate in the match.
func (m *match) group(name string) string {
	i, ok := m.re.groups[name]
	if !ok || 2*i+1 >= len(m.idx) {
		return ""
	}
	lo, hi := m.idx[2*i], m.idx[2*i+1]
	if lo < 0 || hi < 0 {
		return ""
	}
	return m.content[lo:hi]
}

// groupStart returns a named capture's start offset, falling back to
// the match start.
func (m *match) groupStart(name string) int {
	i, ok := m.re.groups[name]
	if !ok || 2*i >= len(m.idx) || m.idx[2*i] < 0 {
		return m.start
	}
	return m.idx[2*i]
}

// signatureText returns the matched text up to (not including) the
// first opening brace.
func signatureText(content string, m *match) string {
	text := content[m.start:m.end]
	if i := strings.Index(text, "{"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// preceding returns the characters immediately before an offset, up to
// the visibility window size.
func preceding(content string, offset int) string {
	lo := offset - visibilityWindow
	if lo < 0 {
		lo = 0
	}
	if offset > len(content) {
		offset = len(content)
	}
	return content[lo:offset]
}

// lineStarts returns the byte offset of each line start.
func lineStarts(content string) []int {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineColAt converts a byte offset to a 1-based line and column.
func lineColAt(starts []int, offset int) (int, int) {
	i := sort.Search(len(starts), func(i int) bool { return starts[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, offset - starts[i] + 1
}

// splitNames splits a comma-separated capture into trimmed names.
func splitNames(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

// splitImportItems parses an imported-item capture, stripping braces
// and whitespace but keeping any "as alias" suffix raw.
func splitImportItems(raw string) []string {
	raw = strings.NewReplacer("{", "", "}", "").Replace(raw)
	return splitNames(raw)
}

// importName derives an element name from an import source string:
// the last path (or dotted-module) segment.
func importName(source string) string {
	name := strings.TrimSuffix(source, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 && i+1 < len(name) {
		name = name[i+1:]
	}
	if name == "" {
		return source
	}
	return name
}

// isTestPath reports whether a file path looks like a test file; the
// functions it declares become test elements.
func isTestPath(filePath string) bool {
	base := strings.ToLower(path.Base(filePath))
	return strings.Contains(base, "_test.") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.") ||
		strings.HasPrefix(base, "test_")
}
