// Package conformance compares a reference OpenAPI document against an
// implementation's document and applies a governance policy to the
// differences. The engine performs no I/O: callers load the documents,
// build a Scope and a Policy (usually from config), run Check and hand the
// Report to a renderer.
package conformance

import (
	"strings"

	"github.com/specparity/specparity/pkg/openapi"
)

// Checker runs the full endpoint-by-endpoint comparison. One Checker per
// document pair; resolvers and their caches are not shared across pairs.
type Checker struct {
	ref    *openapi.Document
	impl   *openapi.Document
	scope  *Scope
	policy *Policy
	differ *differ
}

func NewChecker(ref, impl *openapi.Document, scope *Scope, policy *Policy) *Checker {
	if scope == nil {
		scope = &Scope{}
	}
	if policy == nil {
		policy = &Policy{}
	}
	return &Checker{
		ref:    ref,
		impl:   impl,
		scope:  scope,
		policy: policy,
		differ: &differ{
			refRes:  openapi.NewResolver(ref),
			implRes: openapi.NewResolver(impl),
			policy:  policy,
		},
	}
}

// Check runs the comparison over every in-scope reference endpoint.
func (c *Checker) Check() *Report {
	return c.CheckEndpoints("")
}

// CheckEndpoints is Check restricted to reference paths containing filter.
// Out-of-scope bookkeeping still covers all paths so the report totals stay
// comparable across filtered runs.
func (c *Checker) CheckEndpoints(filter string) *Report {
	refPaths := c.ref.Paths()
	implPaths := c.impl.Paths()

	report := &Report{
		ReferenceVersion:             versionOr(c.ref, "unknown"),
		ImplementationVersion:        versionOr(c.impl, "unknown"),
		TotalReferenceEndpoints:      len(refPaths),
		TotalImplementationEndpoints: len(implPaths),
		EndpointsWithDiffs:           []EndpointDiff{},
		Violations:                   []Violation{},
		ExtensionEndpoints:           []string{},
		OutOfScopeEndpoints:          []string{},
		ExtensionMarker:              c.policy.ExtensionMarker,
	}

	for _, refPath := range sortedKeys(refPaths) {
		if c.scope.OutOfScope(refPath) {
			report.OutOfScopeEndpoints = append(report.OutOfScopeEndpoints, refPath)
			continue
		}
		if filter != "" && !strings.Contains(refPath, filter) {
			continue
		}

		refMethods := asMap(refPaths[refPath])
		implMethods := asMap(implPaths[c.scope.MapPath(refPath)])

		for _, method := range openapi.MethodOrder {
			rawOp, ok := refMethods[method]
			if !ok {
				continue
			}
			if c.scope.MethodOutOfScope(refPath, method) {
				continue
			}

			report.EndpointsChecked++

			implOp, implemented := implMethods[method]
			if !implemented {
				upper := strings.ToUpper(method)
				missing := newEndpointDiff(refPath, upper)
				missing.Missing = true
				report.EndpointsWithDiffs = append(report.EndpointsWithDiffs, missing)
				report.Violations = append(report.Violations, Violation{
					Kind:    ViolationMissingEndpoint,
					Path:    refPath,
					Method:  upper,
					Message: "Endpoint " + upper + " " + refPath + " is not implemented",
				})
				continue
			}

			diff, violations := c.differ.compareOperation(refPath, method, asMap(rawOp), asMap(implOp))
			report.Violations = append(report.Violations, violations...)
			if diff.hasDiffs() {
				report.EndpointsWithDiffs = append(report.EndpointsWithDiffs, diff)
			} else {
				report.FullyConformant++
			}
		}
	}

	report.ExtensionEndpoints = c.scope.ExtensionEndpoints(implPaths, refPaths)
	return report
}

func versionOr(doc *openapi.Document, fallback string) string {
	if v := doc.Version(); v != "" {
		return v
	}
	return fallback
}
