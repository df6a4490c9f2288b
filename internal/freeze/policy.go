package freeze

import "fmt"

// Policy governs reuse of previously computed execution results.
type Policy string

const (
	// PolicyNever disables the cache: every build re-executes.
	PolicyNever Policy = "never"

	// PolicyAlways trusts an existing entry unconditionally, even if its
	// fingerprint no longer matches the current source. This is an explicit
	// reproducibility escape hatch for environments where re-execution is
	// undesirable or impossible. With no prior entry it behaves like
	// PolicyAuto: execute and cache.
	PolicyAlways Policy = "always"

	// PolicyAuto trusts an entry only if its fingerprint matches exactly.
	PolicyAuto Policy = "auto"
)

// ParsePolicy validates a policy string from configuration or flags.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyNever, PolicyAlways, PolicyAuto:
		return Policy(s), nil
	case "":
		return PolicyAuto, nil
	default:
		return "", fmt.Errorf("invalid freeze policy %q (expected never, always, or auto)", s)
	}
}
