package packagemanager

import (
	"strings"

	semver "github.com/Masterminds/semver/v3"
)

// BadVersionError reports a version literal that failed to parse.
type BadVersionError struct {
	Literal string
	Err     error
}

func (e *BadVersionError) Error() string {
	return "bad version \"" + e.Literal + "\": " + e.Err.Error()
}

func (e *BadVersionError) Unwrap() error { return e.Err }

// BadRangeError reports a range literal that failed to parse.
type BadRangeError struct {
	Literal string
	Err     error
}

func (e *BadRangeError) Error() string {
	return "bad range \"" + e.Literal + "\": " + e.Err.Error()
}

func (e *BadRangeError) Unwrap() error { return e.Err }

// parseVersion parses a semantic version literal, failing with BadVersionError.
func parseVersion(literal string) (*semver.Version, error) {
	v, err := semver.NewVersion(literal)
	if err != nil {
		return nil, &BadVersionError{Literal: literal, Err: err}
	}

	return v, nil
}

// parseRange parses a version-range literal. An empty range matches every version.
func parseRange(literal string) (*semver.Constraints, error) {
	if strings.TrimSpace(literal) == "" {
		c, err := semver.NewConstraint(">=0.0.0-0")
		if err != nil {
			return nil, &BadRangeError{Literal: literal, Err: err}
		}

		return c, nil
	}

	c, err := semver.NewConstraint(literal)
	if err != nil {
		return nil, &BadRangeError{Literal: literal, Err: err}
	}

	return c, nil
}

// satisfies reports whether version conforms to range.
func satisfies(version, rng string) bool {
	sv, err := parseVersion(version)
	if err != nil {
		return false
	}

	c, err := parseRange(rng)
	if err != nil {
		return false
	}

	return c.Check(sv)
}

// maxSatisfying returns the highest version in versions (enumerated in ascending
// registry order) that satisfies rng, or ("", false) if none does. Ties under
// semver precedence (e.g. differing build metadata) are broken by enumeration
// order: later entries in versions win, matching the registry's own ascending
// listing order.
func maxSatisfying(versions []string, rng string) (string, bool) {
	c, err := parseRange(rng)
	if err != nil {
		return "", false
	}

	var (
		best    string
		bestSV  *semver.Version
		foundOK bool
	)

	for _, literal := range versions {
		sv, err := parseVersion(literal)
		if err != nil {
			continue
		}

		if !c.Check(sv) {
			continue
		}

		if bestSV == nil || !sv.LessThan(bestSV) {
			best, bestSV = literal, sv
			foundOK = true
		}
	}

	return best, foundOK
}

// caret formats the "compatible-with" range used to pin a root dependency that
// was originally requested with an empty range.
func caret(version string) (string, error) {
	sv, err := parseVersion(version)
	if err != nil {
		return "", err
	}

	return "^" + sv.String(), nil
}
