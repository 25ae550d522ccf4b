package conformance

// DiffKind classifies a single schema-level difference.
type DiffKind string

const (
	DiffMissing          DiffKind = "missing_in_implementation"
	DiffExtension        DiffKind = "implementation_extension"
	DiffTypeMismatch     DiffKind = "type_mismatch"
	DiffRequiredMismatch DiffKind = "required_mismatch"
)

// ViolationKind classifies a CI-blocking finding.
type ViolationKind string

const (
	ViolationMissingEndpoint     ViolationKind = "missing_endpoint"
	ViolationUndocumentedMissing ViolationKind = "undocumented_missing"
	ViolationUnmarkedExtension   ViolationKind = "unmarked_extension"

	// Emitted only when the matching strict policy flag is on.
	ViolationTypeMismatch     ViolationKind = "type_mismatch"
	ViolationRequiredMismatch ViolationKind = "required_mismatch"
)

// Comparison locations within an endpoint.
const (
	LocationRequest  = "request"
	LocationResponse = "response"
	LocationParam    = "param"
)

// SchemaDiff is a single field-level difference between the reference and the
// implementation. Path is a context string such as "/chat/completions request"
// extended with ".child" per nesting level.
type SchemaDiff struct {
	Path        string   `json:"path"`
	Field       string   `json:"field"`
	Kind        DiffKind `json:"type"`
	RefValue    string   `json:"reference_value"`
	ImplValue   string   `json:"implementation_value"`
	Description string   `json:"description"`
}

// EndpointDiff groups the differences found for one reference endpoint.
// Method is upper-cased. Missing means the implementation has no such
// operation at all, in which case the diff lists stay empty.
type EndpointDiff struct {
	Path          string       `json:"path"`
	Method        string       `json:"method"`
	Missing       bool         `json:"missing"`
	RequestDiffs  []SchemaDiff `json:"request_diffs"`
	ResponseDiffs []SchemaDiff `json:"response_diffs"`
	ParamDiffs    []SchemaDiff `json:"param_diffs"`
}

func newEndpointDiff(path, method string) EndpointDiff {
	return EndpointDiff{
		Path:          path,
		Method:        method,
		RequestDiffs:  []SchemaDiff{},
		ResponseDiffs: []SchemaDiff{},
		ParamDiffs:    []SchemaDiff{},
	}
}

func (d EndpointDiff) hasDiffs() bool {
	return len(d.RequestDiffs) > 0 || len(d.ResponseDiffs) > 0 || len(d.ParamDiffs) > 0
}

// Violation is a finding the governance policy did not excuse.
type Violation struct {
	Kind     ViolationKind `json:"type"`
	Path     string        `json:"path"`
	Method   string        `json:"method"`
	Field    string        `json:"field"`
	Location string        `json:"location"`
	Message  string        `json:"message"`
}

// Report is the immutable result of one conformance run. Slices are never
// nil and are ordered deterministically: reference paths lexically, methods
// in MethodOrder.
type Report struct {
	ReferenceVersion      string
	ImplementationVersion string

	TotalReferenceEndpoints      int
	TotalImplementationEndpoints int
	EndpointsChecked             int
	FullyConformant              int

	EndpointsWithDiffs  []EndpointDiff
	Violations          []Violation
	ExtensionEndpoints  []string
	OutOfScopeEndpoints []string

	// ExtensionMarker records the marker the run was checked against so
	// renderers can tell reviewers what to add to a description.
	ExtensionMarker string
}

// HasViolations reports whether the run should fail CI.
func (r *Report) HasViolations() bool {
	return len(r.Violations) > 0
}
