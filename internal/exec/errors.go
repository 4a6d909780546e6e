package exec

import "github.com/samber/oops"

// Error codes this package reports through oops, one per failure class
// a caller might want to branch on.
const (
	CodeUnsupportedSource = "UNSUPPORTED_SOURCE"
	CodeNotComparable     = "NOT_COMPARABLE"
	CodeUnknownFunction   = "UNKNOWN_FUNCTION"
	CodeTypeMismatch      = "TYPE_MISMATCH"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
)

func errUnsupportedSource(kind string) error {
	return oops.Code(CodeUnsupportedSource).
		With("source_kind", kind).
		Errorf("source kind %s is not runnable by the reference executor", kind)
}

func errUnknownFunction(name string) error {
	return oops.Code(CodeUnknownFunction).
		With("function", name).
		Errorf("function %s has no executor implementation", name)
}

// errAttributesNotComparable implements the resolved Open Question on
// X.attributes: admissible at parse time as a ScalarExpr, rejected here
// at execution time because the full attribute map has no ordering or
// equality contract to compare against a scalar RHS.
func errAttributesNotComparable() error {
	return oops.Code(CodeNotComparable).
		Errorf("attributes map is not comparable; select a specific attribute or use CONTAINS/EXISTS instead")
}
