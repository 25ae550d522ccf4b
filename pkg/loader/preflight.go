package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/pb33f/libopenapi"
)

// PreflightInfo summarizes what the full-fidelity parsers make of a
// document before the engine runs on the raw tree.
type PreflightInfo struct {
	SpecVersion string
	Title       string
	Version     string
	PathCount   int
	Warnings    []string
}

// Preflight builds the document with libopenapi and, for 3.0.x documents,
// validates it with kin-openapi. The engine degrades on malformed nodes
// rather than aborting, so parser findings are reported as warnings and
// never stop a run.
func Preflight(ctx context.Context, content []byte) *PreflightInfo {
	info := &PreflightInfo{Warnings: []string{}}

	doc, err := libopenapi.NewDocument(content)
	if err != nil {
		info.Warnings = append(info.Warnings, fmt.Sprintf("document parse: %v", err))
		return info
	}

	info.SpecVersion = doc.GetVersion()

	model, errs := doc.BuildV3Model()
	if len(errs) > 0 {
		info.Warnings = append(info.Warnings, fmt.Sprintf("model build: %v", errors.Join(errs...)))
	}
	if model != nil {
		if model.Model.Info != nil {
			info.Title = model.Model.Info.Title
			info.Version = model.Model.Info.Version
		}
		if model.Model.Paths != nil && model.Model.Paths.PathItems != nil {
			info.PathCount = model.Model.Paths.PathItems.Len()
		}
	}

	// kin-openapi validates 3.0.x documents strictly; 3.1 support there is
	// partial, so those stay with libopenapi alone.
	if strings.HasPrefix(info.SpecVersion, "3.0") {
		kinLoader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: true}
		kinDoc, err := kinLoader.LoadFromData(content)
		if err != nil {
			info.Warnings = append(info.Warnings, fmt.Sprintf("strict parse: %v", err))
			return info
		}
		if err := kinDoc.Validate(ctx); err != nil {
			info.Warnings = append(info.Warnings, fmt.Sprintf("strict validation: %v", err))
		}
	}

	return info
}
