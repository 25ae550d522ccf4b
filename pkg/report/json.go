package report

import (
	"encoding/json"

	"github.com/specparity/specparity/pkg/conformance"
)

// jsonReport pins the envelope layout of the machine-readable report.
// Struct order is the wire order.
type jsonReport struct {
	ReferenceVersion      string                     `json:"reference_version"`
	ImplementationVersion string                     `json:"implementation_version"`
	Summary               jsonSummary                `json:"summary"`
	Violations            []conformance.Violation    `json:"violations"`
	EndpointsWithDiffs    []conformance.EndpointDiff `json:"endpoints_with_diffs"`
	ExtensionEndpoints    []string                   `json:"extension_endpoints"`
	OutOfScopeEndpoints   []string                   `json:"out_of_scope_endpoints"`
}

type jsonSummary struct {
	TotalReferenceEndpoints      int `json:"total_reference_endpoints"`
	TotalImplementationEndpoints int `json:"total_implementation_endpoints"`
	EndpointsChecked             int `json:"endpoints_checked"`
	FullyConformant              int `json:"fully_conformant"`
	WithDifferences              int `json:"with_differences"`
	OutOfScope                   int `json:"out_of_scope"`
	Extensions                   int `json:"extensions"`
	Violations                   int `json:"violations"`
}

// JSON renders the report as indented JSON with stable field names, suitable
// for diffing between runs and for machine consumption in CI.
func JSON(r *conformance.Report) (string, error) {
	payload := jsonReport{
		ReferenceVersion:      r.ReferenceVersion,
		ImplementationVersion: r.ImplementationVersion,
		Summary: jsonSummary{
			TotalReferenceEndpoints:      r.TotalReferenceEndpoints,
			TotalImplementationEndpoints: r.TotalImplementationEndpoints,
			EndpointsChecked:             r.EndpointsChecked,
			FullyConformant:              r.FullyConformant,
			WithDifferences:              len(r.EndpointsWithDiffs),
			OutOfScope:                   len(r.OutOfScopeEndpoints),
			Extensions:                   len(r.ExtensionEndpoints),
			Violations:                   len(r.Violations),
		},
		Violations:          r.Violations,
		EndpointsWithDiffs:  r.EndpointsWithDiffs,
		ExtensionEndpoints:  r.ExtensionEndpoints,
		OutOfScopeEndpoints: r.OutOfScopeEndpoints,
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
