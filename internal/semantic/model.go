// Package semantic provides the semantic map data model.
//
// It defines the element and relationship types that represent code-level
// constructs (files, classes, functions, imports, etc.), the derived
// groupings (clusters, layers, concepts), and the SemanticMap aggregate
// that owns them all.
package semantic

// ElementKind represents the kind of a code element.
type ElementKind string

const (
	KindFile      ElementKind = "file"
	KindDirectory ElementKind = "directory"
	KindModule    ElementKind = "module"
	KindClass     ElementKind = "class"
	KindInterface ElementKind = "interface"
	KindType      ElementKind = "type"
	KindFunction  ElementKind = "function"
	KindMethod    ElementKind = "method"
	KindVariable  ElementKind = "variable"
	KindConstant  ElementKind = "constant"
	KindEnum      ElementKind = "enum"
	KindImport    ElementKind = "import"
	KindExport    ElementKind = "export"
	KindComponent ElementKind = "component"
	KindHook      ElementKind = "hook"
	KindTest      ElementKind = "test"
	KindConfig    ElementKind = "config"
)

// RelationshipType represents the type of a relationship between elements.
type RelationshipType string

const (
	RelImports      RelationshipType = "imports"
	RelExports      RelationshipType = "exports"
	RelCalls        RelationshipType = "calls"
	RelImplements   RelationshipType = "implements"
	RelExtends      RelationshipType = "extends"
	RelUses         RelationshipType = "uses"
	RelDefines      RelationshipType = "defines"
	RelContains     RelationshipType = "contains"
	RelTests        RelationshipType = "tests"
	RelDependsOn    RelationshipType = "depends_on"
	RelSimilarTo    RelationshipType = "similar_to"
	RelOverrides    RelationshipType = "overrides"
	RelReferences   RelationshipType = "references"
	RelInstantiates RelationshipType = "instantiates"
)

// Visibility represents the access level of an element.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
	VisibilityInternal  Visibility = "internal"
)

// ClusterCategory classifies what a cluster of elements represents.
type ClusterCategory string

const (
	CategoryFeature       ClusterCategory = "feature"
	CategoryModule        ClusterCategory = "module"
	CategoryLayer         ClusterCategory = "layer"
	CategoryUtility       ClusterCategory = "utility"
	CategoryDataModel     ClusterCategory = "data_model"
	CategoryAPI           ClusterCategory = "api"
	CategoryUI            ClusterCategory = "ui"
	CategoryBusinessLogic ClusterCategory = "business_logic"
	CategoryInfra         ClusterCategory = "infrastructure"
	CategoryTesting       ClusterCategory = "testing"
	CategoryConfiguration ClusterCategory = "configuration"
	CategoryUnknown       ClusterCategory = "unknown"
)

// Location is a source position inside a file. Lines are 1-based;
// columns are 1-based and zero when unknown.
type Location struct {
	StartLine   int `json:"startLine"`
	EndLine     int `json:"endLine"`
	StartColumn int `json:"startColumn,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

// CodeElement represents a discovered code construct.
type CodeElement struct {
	// ID is the unique identifier within a map.
	// Format: {kind}:{file_path}:{name}
	ID string `json:"id"`

	// Kind is the element kind.
	Kind ElementKind `json:"kind"`

	// Name is the short name of the construct.
	Name string `json:"name"`

	// QualifiedName is unique within the owning file for non-import,
	// non-file kinds. Typically {file_path}:{name}; just the file path
	// for file elements. Collisions are tolerated, last write wins.
	QualifiedName string `json:"qualifiedName"`

	// FilePath is the path of the file containing this element.
	FilePath string `json:"filePath"`

	// Location is the source position of the element.
	Location Location `json:"location"`

	// Language is the detected language tag (e.g. "typescript", "go").
	Language string `json:"language"`

	// Visibility is the inferred access level.
	Visibility Visibility `json:"visibility"`

	// Metadata holds kind-specific attributes, e.g. "extends",
	// "implements", "params", "returnType", "source" for imports.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Signature is the declaration text, for functions and methods.
	Signature string `json:"signature,omitempty"`

	// Doc is optional documentation text.
	Doc string `json:"doc,omitempty"`
}

// CodeRelationship represents a directed, typed, weighted edge between
// two element IDs.
type CodeRelationship struct {
	// ID is derived deterministically from source, type, and target,
	// so re-adding the same edge is idempotent.
	ID string `json:"id"`

	// Type is the relationship type.
	Type RelationshipType `json:"type"`

	// Source is the ID of the source element.
	Source string `json:"source"`

	// Target is the ID of the target element.
	Target string `json:"target"`

	// Strength is a confidence score in [0,1].
	Strength float64 `json:"strength"`

	// Metadata holds additional edge attributes.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SemanticCluster is a named grouping of element IDs.
//
// Clusters are not guaranteed disjoint: merging two clusters unions
// their element lists without de-duplication.
type SemanticCluster struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category ClusterCategory `json:"category"`

	// Elements is the list of member element IDs (may contain
	// duplicates after a merge).
	Elements []string `json:"elements"`

	// Coherence is a cohesion score in [0,1].
	Coherence float64 `json:"coherence"`

	// Keywords holds up to 10 representative name fragments.
	Keywords []string `json:"keywords"`
}

// ArchitecturalLayer is an architectural tier inferred from path
// conventions. Lower levels are more foundational; Testing is level 0.
type ArchitecturalLayer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`

	// Elements is the list of member element IDs.
	Elements []string `json:"elements"`

	// DependsOn lists IDs of layers this layer imports from
	// (deduplicated, unordered).
	DependsOn []string `json:"dependsOn"`
}

// CodeConcept is a recurring name fragment treated as a cross-cutting
// topic.
type CodeConcept struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Keywords []string `json:"keywords"`

	// Elements is every element whose name contains the fragment.
	Elements []string `json:"elements"`

	// Frequency is the raw global fragment count.
	Frequency int `json:"frequency"`

	// Importance is min(1, Frequency/20).
	Importance float64 `json:"importance"`
}

// MapStatistics summarizes a map's contents.
type MapStatistics struct {
	TotalElements       int                      `json:"totalElements"`
	ElementsByKind      map[ElementKind]int      `json:"elementsByKind"`
	TotalRelationships  int                      `json:"totalRelationships"`
	RelationshipsByType map[RelationshipType]int `json:"relationshipsByType"`
	ClusterCount        int                      `json:"clusterCount"`

	// AverageClusterSize counts duplicated member IDs left behind by
	// cluster merges; it can therefore overstate true membership.
	AverageClusterSize float64 `json:"averageClusterSize"`

	LayerCount   int `json:"layerCount"`
	ConceptCount int `json:"conceptCount"`
}

// ElementID creates a deterministic element ID from kind, file path,
// and name. Format: {kind}:{file_path}:{name}; file elements omit the
// name component.
func ElementID(kind ElementKind, filePath, name string) string {
	if name == "" {
		return string(kind) + ":" + filePath
	}
	return string(kind) + ":" + filePath + ":" + name
}

// RelationshipID creates a deterministic relationship ID so that
// re-adding an identical edge overwrites rather than duplicates.
func RelationshipID(source string, relType RelationshipType, target string) string {
	return source + "|" + string(relType) + "|" + target
}
