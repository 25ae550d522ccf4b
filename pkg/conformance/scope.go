package conformance

import (
	"slices"
	"strings"
)

// Scope decides which reference endpoints the implementation is expected to
// serve and how reference paths translate to implementation paths.
type Scope struct {
	// PathMapping maps reference paths to implementation paths when the
	// translation is not a plain prefix.
	PathMapping map[string]string

	// PathPrefix is prepended to reference paths without a mapping entry,
	// e.g. "/api/v1".
	PathPrefix string

	// AdminPrefix marks implementation namespaces that never count as
	// extension endpoints, e.g. "/admin/".
	AdminPrefix string

	OutOfScopePaths    []string
	OutOfScopePrefixes []string

	// OutOfScopeMethods excludes single methods (lower-case) for a path or
	// path template.
	OutOfScopeMethods map[string][]string
}

// MapPath translates a reference path to the implementation path it is
// expected at.
func (s *Scope) MapPath(refPath string) string {
	if mapped, ok := s.PathMapping[refPath]; ok {
		return mapped
	}
	return s.PathPrefix + refPath
}

// OutOfScope reports whether a reference path is excluded from checking,
// by exact path, by path template, or by prefix, in that order.
func (s *Scope) OutOfScope(path string) bool {
	for _, p := range s.OutOfScopePaths {
		if p == path {
			return true
		}
	}
	for _, pattern := range s.OutOfScopePaths {
		if pathMatchesTemplate(path, pattern) {
			return true
		}
	}
	for _, prefix := range s.OutOfScopePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// MethodOutOfScope reports whether one method of an otherwise in-scope path
// is excluded.
func (s *Scope) MethodOutOfScope(path, method string) bool {
	if methods, ok := s.OutOfScopeMethods[path]; ok {
		return slices.Contains(methods, method)
	}
	for pattern, methods := range s.OutOfScopeMethods {
		if pathMatchesTemplate(path, pattern) && slices.Contains(methods, method) {
			return true
		}
	}
	return false
}

// ExtensionEndpoints lists implementation paths that serve no reference
// endpoint: not a mapping target, not under the admin namespace, under the
// path prefix but with no reference counterpart. Sorted.
func (s *Scope) ExtensionEndpoints(implPaths, refPaths map[string]any) []string {
	mapped := make(map[string]bool, len(s.PathMapping))
	for _, target := range s.PathMapping {
		mapped[target] = true
	}

	nsPrefix := s.PathPrefix + "/"
	out := []string{}
	for _, implPath := range sortedKeys(implPaths) {
		if s.AdminPrefix != "" && strings.HasPrefix(implPath, s.AdminPrefix) {
			continue
		}
		if mapped[implPath] {
			continue
		}
		if !strings.HasPrefix(implPath, nsPrefix) {
			continue
		}
		candidate := strings.ReplaceAll(implPath, nsPrefix, "/")
		if _, ok := refPaths[candidate]; !ok {
			out = append(out, implPath)
		}
	}
	return out
}

// pathMatchesTemplate matches segment-wise; "{param}" segments match any
// single segment. Lengths must agree.
func pathMatchesTemplate(path, pattern string) bool {
	pathParts := strings.Split(path, "/")
	patternParts := strings.Split(pattern, "/")
	if len(pathParts) != len(patternParts) {
		return false
	}
	for i, part := range patternParts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			continue
		}
		if pathParts[i] != part {
			return false
		}
	}
	return true
}
