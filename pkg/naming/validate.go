package naming

import (
	"fmt"

	"github.com/chazu/toponame/pkg/kernel"
)

// ValidationSeverity indicates whether a finding makes a reference table
// unusable or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // table cannot be trusted
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Sub      kernel.Subshape
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s %d: %s", e.Severity, e.Sub.Kind, e.Sub.Index, e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	Sub     kernel.Subshape
	Message string
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether no blocking error was found.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate checks the reference table of t. Every sub-shape must carry a
// valid Reference of its own kind. Two sub-shapes sharing a hash and
// References left over from repair are reported as warnings. Validate never
// mutates t.
func Validate(t *TopoShape) ValidationResult {
	var result ValidationResult
	if t.IsNull() {
		return result
	}

	seen := make(map[uint64]kernel.Subshape)
	for _, sub := range t.Shape().Subshapes() {
		if !t.HasSubshapeReference(sub) {
			result.Errors = append(result.Errors, ValidationError{
				Sub:     sub,
				Message: "missing reference",
			})
			continue
		}
		ref := t.SubshapeReference(sub)
		if !ref.IsValid() {
			result.Errors = append(result.Errors, ValidationError{
				Sub:     sub,
				Message: "invalid reference",
			})
			continue
		}
		if want := ShapeTypeOf(sub.Kind); ref.Shape() != want {
			result.Errors = append(result.Errors, ValidationError{
				Sub:     sub,
				Message: fmt.Sprintf("reference names a %s, sub-shape is a %s", ref.Shape(), want),
			})
		}
		if ref.HasOperation(OpRepair) {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Sub:     sub,
				Message: "reference was repaired and carries no lineage",
			})
		}
		h := ref.Hash()
		if prev, dup := seen[h]; dup {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Sub:     sub,
				Message: fmt.Sprintf("shares hash %d with %s %d", h, prev.Kind, prev.Index),
			})
			continue
		}
		seen[h] = sub
	}
	return result
}
