// Package report renders a conformance run as console text or JSON.
// Renderers only read the report model; they never touch the documents.
package report

import (
	"fmt"
	"strings"

	"github.com/specparity/specparity/pkg/conformance"
)

const ruleWidth = 70

// Text renders the report in the classic console layout.
func Text(r *conformance.Report) string {
	return renderText(r, false)
}

// TextVerbose is Text plus a listing of every out-of-scope endpoint.
func TextVerbose(r *conformance.Report) string {
	return renderText(r, true)
}

func renderText(r *conformance.Report, verbose bool) string {
	heavy := strings.Repeat("=", ruleWidth)
	light := strings.Repeat("-", ruleWidth)

	lines := []string{
		heavy,
		"OpenAPI Conformance Report",
		heavy,
		"Reference spec version: " + r.ReferenceVersion,
		"Implementation spec version: " + r.ImplementationVersion,
		"",
		"Summary:",
		fmt.Sprintf("  - Reference endpoints: %d", r.TotalReferenceEndpoints),
		fmt.Sprintf("  - Implementation endpoints: %d", r.TotalImplementationEndpoints),
		fmt.Sprintf("  - Endpoints checked: %d", r.EndpointsChecked),
		fmt.Sprintf("  - Fully conformant: %d", r.FullyConformant),
		fmt.Sprintf("  - With differences: %d", len(r.EndpointsWithDiffs)),
		fmt.Sprintf("  - Out of scope: %d", len(r.OutOfScopeEndpoints)),
		fmt.Sprintf("  - Implementation-only (extensions): %d", len(r.ExtensionEndpoints)),
		"",
	}

	if len(r.EndpointsWithDiffs) > 0 {
		lines = append(lines, light, "Endpoints with Differences:", light)

		for _, diff := range r.EndpointsWithDiffs {
			lines = append(lines, "", diff.Method+" "+diff.Path)

			if diff.Missing {
				lines = append(lines, "  [MISSING] Endpoint not implemented")
				continue
			}
			if len(diff.RequestDiffs) > 0 {
				lines = append(lines, "  Request body differences:")
				lines = appendSchemaDiffs(lines, diff.RequestDiffs)
			}
			if len(diff.ResponseDiffs) > 0 {
				lines = append(lines, "  Response body differences:")
				lines = appendSchemaDiffs(lines, diff.ResponseDiffs)
			}
			if len(diff.ParamDiffs) > 0 {
				lines = append(lines, "  Query parameter differences:")
				lines = appendSchemaDiffs(lines, diff.ParamDiffs)
			}
		}
	}

	if len(r.ExtensionEndpoints) > 0 {
		lines = append(lines, "", light, "Implementation Extension Endpoints:", light)
		for _, path := range r.ExtensionEndpoints {
			lines = append(lines, "  [+] "+path)
		}
	}

	if verbose && len(r.OutOfScopeEndpoints) > 0 {
		lines = append(lines, "", light, "Out of Scope Endpoints:", light)
		for _, path := range r.OutOfScopeEndpoints {
			lines = append(lines, "  - "+path)
		}
	}

	if len(r.Violations) > 0 {
		lines = append(lines, "", heavy, "CI VIOLATIONS (will cause CI to fail)", heavy)

		missing := byKind(r.Violations, conformance.ViolationMissingEndpoint)
		undocumented := byKind(r.Violations, conformance.ViolationUndocumentedMissing)
		unmarked := byKind(r.Violations, conformance.ViolationUnmarkedExtension)
		typeMismatches := byKind(r.Violations, conformance.ViolationTypeMismatch)
		requiredMismatches := byKind(r.Violations, conformance.ViolationRequiredMismatch)

		if len(missing) > 0 {
			lines = append(lines, "", "Missing Endpoints (must be implemented):")
			for _, v := range missing {
				lines = append(lines, "  - "+v.Method+" "+v.Path)
			}
		}
		if len(undocumented) > 0 {
			lines = append(lines, "", "Undocumented Missing Fields (add to the policy exceptions):")
			for _, v := range undocumented {
				lines = append(lines, violationLine(v))
			}
		}
		if len(unmarked) > 0 {
			lines = append(lines, "", fmt.Sprintf("Unmarked Extensions (add '%s' to description):", r.ExtensionMarker))
			for _, v := range unmarked {
				lines = append(lines, violationLine(v))
			}
		}
		if len(typeMismatches) > 0 {
			lines = append(lines, "", "Type Mismatches (strict mode):")
			for _, v := range typeMismatches {
				lines = append(lines, violationLine(v))
			}
		}
		if len(requiredMismatches) > 0 {
			lines = append(lines, "", "Required Mismatches (strict mode):")
			for _, v := range requiredMismatches {
				lines = append(lines, violationLine(v))
			}
		}

		lines = append(lines, "", fmt.Sprintf("Total violations: %d", len(r.Violations)))
	} else {
		lines = append(lines, "", heavy, "CI STATUS: PASS (no violations)", heavy)
	}

	lines = append(lines,
		"",
		"Legend:",
		"  [-] Missing in implementation",
		"  [+] Implementation extension",
		"  [~] Type mismatch",
		"  [!] Required/optional mismatch",
	)

	return strings.Join(lines, "\n")
}

func appendSchemaDiffs(lines []string, diffs []conformance.SchemaDiff) []string {
	for _, d := range diffs {
		lines = append(lines, "    "+diffIcon(d.Kind)+" "+d.Description)
	}
	return lines
}

func diffIcon(kind conformance.DiffKind) string {
	switch kind {
	case conformance.DiffExtension:
		return "[+]"
	case conformance.DiffTypeMismatch:
		return "[~]"
	case conformance.DiffRequiredMismatch:
		return "[!]"
	default:
		return "[-]"
	}
}

func violationLine(v conformance.Violation) string {
	return fmt.Sprintf("  - %s %s [%s] %s", v.Method, v.Path, v.Location, v.Field)
}

func byKind(violations []conformance.Violation, kind conformance.ViolationKind) []conformance.Violation {
	var matched []conformance.Violation
	for _, v := range violations {
		if v.Kind == kind {
			matched = append(matched, v)
		}
	}
	return matched
}
