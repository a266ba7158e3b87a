package spec

import "github.com/roach88/fetchr/internal/entity"

// PolicyFunc decides from cached data whether a fresh fetch is required.
type PolicyFunc func(data entity.Attributes) bool

// Policy is a needsFetch override. It is either unset, a fixed boolean, or a
// function of the cached data.
type Policy struct {
	set   bool
	fixed bool
	fn    PolicyFunc
}

// Always returns a policy that answers b regardless of the data.
func Always(b bool) Policy {
	return Policy{set: true, fixed: b}
}

// Func returns a policy that calls fn with the cached data.
func Func(fn PolicyFunc) Policy {
	if fn == nil {
		return Policy{}
	}
	return Policy{set: true, fn: fn}
}

// IsSet reports whether the policy overrides stale-detection.
func (p Policy) IsSet() bool { return p.set }

// Fixed returns the boolean of an Always policy.
func (p Policy) Fixed() (value, ok bool) {
	if !p.set || p.fn != nil {
		return false, false
	}
	return p.fixed, true
}

// Decide applies the policy. The function form is invoked exactly once.
// An unset policy answers false.
func (p Policy) Decide(data entity.Attributes) bool {
	switch {
	case !p.set:
		return false
	case p.fn != nil:
		return p.fn(data)
	default:
		return p.fixed
	}
}
