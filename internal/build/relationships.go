package build

import (
	"strings"

	"github.com/cartograph-dev/semamap/internal/semantic"
)

// buildRelationships runs the relationship passes over the complete
// element set, in order: containment, import resolution, class
// heritage, interface heritage, heuristic type usage. Returns the
// total relationship count.
//
// Resolution is global name matching across all files, not proven
// reachability: duplicate names can over-link. That approximation is
// intentional.
func buildRelationships(m *semantic.SemanticMap, cfg Config) int {
	elements := m.Elements()

	// Exact-name lookup for heritage and import-item resolution.
	byName := make(map[string][]*semantic.CodeElement)
	for _, el := range elements {
		byName[el.Name] = append(byName[el.Name], el)
	}

	linkContainment(m, elements)
	if cfg.AnalyzeImports {
		linkImports(m, byName)
	}
	linkHeritage(m, byName)
	if cfg.AnalyzeTypes {
		linkTypeUsage(m)
	}

	return m.RelationshipCount()
}

// linkContainment adds a contains edge from each file element to every
// non-file element sharing its file path.
func linkContainment(m *semantic.SemanticMap, elements []*semantic.CodeElement) {
	for _, el := range elements {
		if el.Kind == semantic.KindFile {
			continue
		}
		fileID := semantic.ElementID(semantic.KindFile, el.FilePath, "")
		if m.HasElement(fileID) {
			addRelationship(m, semantic.RelContains, fileID, el.ID, 1.0, nil)
		}
	}
}

// linkImports resolves each import element's source string against file
// elements (path or qualified name containing the string) and its raw
// imported-item names against non-import elements by exact name.
// Unresolvable imports are silently dropped.
func linkImports(m *semantic.SemanticMap, byName map[string][]*semantic.CodeElement) {
	files := m.ElementsByKind(semantic.KindFile)

	for _, imp := range m.ElementsByKind(semantic.KindImport) {
		source := metaString(imp, "source")
		if source == "" {
			continue
		}

		for _, f := range files {
			if f.FilePath == imp.FilePath {
				continue
			}
			if strings.Contains(f.FilePath, source) || strings.Contains(f.QualifiedName, source) {
				addRelationship(m, semantic.RelImports, imp.ID, f.ID, 1.0, map[string]any{"source": source})
				break
			}
		}

		for _, item := range metaStrings(imp, "items") {
			name := item
			if i := strings.Index(name, " as "); i >= 0 {
				name = strings.TrimSpace(name[:i])
			}
			for _, target := range byName[name] {
				if target.Kind == semantic.KindImport || target.ID == imp.ID {
					continue
				}
				addRelationship(m, semantic.RelImports, imp.ID, target.ID, 1.0, map[string]any{"item": item})
				break
			}
		}
	}
}

// linkHeritage resolves recorded superclass and interface names by
// exact name match: class extends class, class implements interface,
// interface extends interface.
func linkHeritage(m *semantic.SemanticMap, byName map[string][]*semantic.CodeElement) {
	for _, class := range m.ElementsByKind(semantic.KindClass) {
		if super := metaString(class, "extends"); super != "" {
			for _, target := range byName[super] {
				if target.Kind == semantic.KindClass && target.ID != class.ID {
					addRelationship(m, semantic.RelExtends, class.ID, target.ID, 1.0, nil)
					break
				}
			}
		}
		for _, iface := range metaStrings(class, "implements") {
			for _, target := range byName[iface] {
				if target.Kind == semantic.KindInterface {
					addRelationship(m, semantic.RelImplements, class.ID, target.ID, 1.0, nil)
					break
				}
			}
		}
	}

	for _, iface := range m.ElementsByKind(semantic.KindInterface) {
		for _, base := range metaStrings(iface, "extends") {
			for _, target := range byName[base] {
				if target.Kind == semantic.KindInterface && target.ID != iface.ID {
					addRelationship(m, semantic.RelExtends, iface.ID, target.ID, 1.0, nil)
					break
				}
			}
		}
	}
}

// linkTypeUsage adds a uses edge (strength 0.5) from every function or
// method to each type or interface whose name appears as a substring of
// the function's signature text.
func linkTypeUsage(m *semantic.SemanticMap) {
	types := append(m.ElementsByKind(semantic.KindType), m.ElementsByKind(semantic.KindInterface)...)
	if len(types) == 0 {
		return
	}

	callables := append(m.ElementsByKind(semantic.KindFunction), m.ElementsByKind(semantic.KindMethod)...)
	for _, fn := range callables {
		if fn.Signature == "" {
			continue
		}
		for _, t := range types {
			if t.Name == "" || t.ID == fn.ID {
				continue
			}
			if strings.Contains(fn.Signature, t.Name) {
				addRelationship(m, semantic.RelUses, fn.ID, t.ID, 0.5, nil)
			}
		}
	}
}

func addRelationship(m *semantic.SemanticMap, relType semantic.RelationshipType, source, target string, strength float64, md map[string]any) {
	m.AddRelationship(&semantic.CodeRelationship{
		ID:       semantic.RelationshipID(source, relType, target),
		Type:     relType,
		Source:   source,
		Target:   target,
		Strength: strength,
		Metadata: md,
	})
}

// metaString returns a string metadata value, tolerating absent keys
// and foreign types.
func metaString(el *semantic.CodeElement, key string) string {
	if el.Metadata == nil {
		return ""
	}
	s, _ := el.Metadata[key].(string)
	return s
}

// metaStrings returns a string-list metadata value. Lists deserialized
// from storage arrive as []any and are converted.
func metaStrings(el *semantic.CodeElement, key string) []string {
	if el.Metadata == nil {
		return nil
	}
	switch v := el.Metadata[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
