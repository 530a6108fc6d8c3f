// Package variant holds the closed set of build configurations the native
// build tool understands.
package variant

// Variant names one build configuration, e.g. "dev_server".
type Variant string

// DefaultVariant is used when build, lint or run are given no --type.
const DefaultVariant Variant = "all"

// Registry is an immutable set of recognised variants. The zero value is
// empty and rejects everything; use Default.
type Registry struct {
	order []Variant
	set   map[Variant]struct{}
}

// Default returns the registry of the configurations the build tool declares.
func Default() Registry {
	known := []Variant{
		"dev_server",
		"rel_server",
		"dev_client",
		"rel_client",
		"dev_all",
		"rel_all",
		"all",
	}
	r := Registry{
		order: make([]Variant, 0, len(known)),
		set:   make(map[Variant]struct{}, len(known)),
	}
	for _, v := range known {
		r.order = append(r.order, v)
		r.set[v] = struct{}{}
	}
	return r
}

// Validate reports whether candidate is a member of the registry.
// Matching is exact: no trimming, no case folding.
func (r Registry) Validate(candidate string) bool {
	_, ok := r.set[Variant(candidate)]
	return ok
}

// Variants returns the members in declaration order.
func (r Registry) Variants() []Variant {
	out := make([]Variant, len(r.order))
	copy(out, r.order)
	return out
}

// Names returns the members as strings in declaration order.
func (r Registry) Names() []string {
	out := make([]string, len(r.order))
	for i, v := range r.order {
		out[i] = string(v)
	}
	return out
}
