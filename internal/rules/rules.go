// Package rules holds the pure predicates that decide whether a proposed mutation is legal.
//
// Rules are data: each one is a name and a check over a subject built from the state read
// inside the atomic unit plus the request parameters. They never read the clock, the store
// or any other source of nondeterminism, so replaying a (state, params) pair after a
// concurrent modification always yields the same verdict.
package rules

// Rule is a single named invariant over a subject
type Rule[S any] struct {
	Name  string
	Check func(S) error
}

// First evaluates rules in order and returns the first violation, or nil
func First[S any](subject S, rules ...Rule[S]) error {
	for _, r := range rules {
		if err := r.Check(subject); err != nil {
			return err
		}
	}
	return nil
}

// Names lists rule names in evaluation order
func Names[S any](rules []Rule[S]) []string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Name)
	}
	return names
}
