package shadowcache

import "fmt"

// AttributeError reports that name does not resolve on an object of Type,
// mirroring the host's own attribute-not-found error rather than
// inventing a new error surface.
type AttributeError struct {
	Name string
	Type Type
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("no attribute %q", e.Name)
}

// ErrUncacheableSite is returned by a classification that succeeded at
// resolving the attribute but found a shape this package does not cache
// (e.g. a type with no stable slot/dict layout at all). It is not a
// failure of the access itself — callers resolve the value through the
// generic, uncached path and simply skip installing an entry. Handlers
// count this against the uncacheable stat.
type uncacheableError struct {
	reason string
}

func (e *uncacheableError) Error() string {
	return "uncacheable site: " + e.reason
}

// ErrUncacheableSite, when wrapped with a reason via newUncacheable, is
// tested for with errors.As/errors.Is by callers that need to distinguish
// it from a genuine failure.
func newUncacheable(reason string) error {
	return &uncacheableError{reason: reason}
}

// IsUncacheable reports whether err marks a site as unspecializable
// rather than as a real attribute/allocation failure.
func IsUncacheable(err error) bool {
	_, ok := err.(*uncacheableError)
	return ok
}
