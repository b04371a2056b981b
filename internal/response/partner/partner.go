// Package partner reshapes canonical responses into partner-specific
// payloads. The registry maps a configured partner name to a Transform;
// unknown partners fall through to the identity transform, which hands the
// canonical response back untouched.
package partner

import (
	"fmt"
	"strings"

	"taxrelay/internal/response/schema"
)

// Transform reshapes a canonical response into a partner payload. The
// returned value is marshaled as-is onto the wire.
type Transform func(resp schema.Response) (any, error)

// Registry resolves partner names to transforms. Lookup is
// case-insensitive. The zero value is unusable; construct with NewRegistry.
type Registry struct {
	transforms map[string]Transform
}

// NewRegistry builds a registry with the built-in partner transforms.
// baseURL prefixes the relative endpoint paths in partner payloads.
func NewRegistry(baseURL string) *Registry {
	r := &Registry{transforms: make(map[string]Transform)}
	r.Register("conductiv", ConductivTransform(baseURL))
	r.Register("employercom", EmployerComTransform())
	return r
}

// Register installs a transform under name, replacing any existing one.
func (r *Registry) Register(name string, t Transform) {
	r.transforms[strings.ToLower(name)] = t
}

// Apply runs the transform registered for name, or the identity transform
// when the name is empty or unregistered. A panicking transform is
// recovered and surfaced as an error; the delivery fails rather than
// sending a half-built payload.
func (r *Registry) Apply(name string, resp schema.Response) (out any, err error) {
	t, ok := r.transforms[strings.ToLower(name)]
	if !ok {
		return resp, nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("partner transform %q panicked: %v", name, rec)
		}
	}()
	return t(resp)
}
