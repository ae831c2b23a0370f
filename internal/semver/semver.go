package semver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

const versionPath = "/version"

var versionPattern = regexp.MustCompile(`^v(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)$`)

var ErrParse = errors.New("could not parse provided string into semantic version")

// Comparison is the outcome of comparing a version against another, from the
// perspective of the receiver: CompareOldMinor means the receiver is behind on minor.
type Comparison int

const (
	CompareEqual Comparison = iota
	CompareOldMajor
	CompareNewMajor
	CompareOldMinor
	CompareNewMinor
	CompareOldPatch
	CompareNewPatch
)

// Version is a vMAJOR.MINOR.PATCH version as reported by the hub on /version.
type Version struct {
	Major int `json:"major,omitempty"`
	Minor int `json:"minor,omitempty"`
	Patch int `json:"patch,omitempty"`
}

// Parse parses strings of the form v1.2.3. Leading zeros are rejected.
func Parse(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, ErrParse
	}
	var parts [3]int
	for i, digits := range m[1:] {
		n, err := strconv.Atoi(digits)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %s", ErrParse, err)
		}
		parts[i] = n
	}
	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2]}, nil
}

func (sv Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", sv.Major, sv.Minor, sv.Patch)
}

// Compare reports the first component, major to patch, that differs from oracle.
func (sv Version) Compare(oracle Version) Comparison {
	components := [...]struct {
		ours, theirs int
		older, newer Comparison
	}{
		{sv.Major, oracle.Major, CompareOldMajor, CompareNewMajor},
		{sv.Minor, oracle.Minor, CompareOldMinor, CompareNewMinor},
		{sv.Patch, oracle.Patch, CompareOldPatch, CompareNewPatch},
	}
	for _, c := range components {
		switch {
		case c.ours < c.theirs:
			return c.older
		case c.ours > c.theirs:
			return c.newer
		}
	}
	return CompareEqual
}

// FetchServerVersion fetches the version advertised by the hub at baseURL.
func FetchServerVersion(ctx context.Context, client *http.Client, baseURL string) (Version, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL, "/")+versionPath, nil)
	if err != nil {
		return Version{}, fmt.Errorf("creating version request: %w", err)
	}
	r, err := client.Do(req)
	if err != nil {
		return Version{}, fmt.Errorf("fetching version from server: %w", err)
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		return Version{}, fmt.Errorf("fetching version from server: HTTP %d", r.StatusCode)
	}
	var version Version
	if err := json.NewDecoder(r.Body).Decode(&version); err != nil {
		return Version{}, fmt.Errorf("decoding version response from server: %w", err)
	}
	return version, nil
}

// Compatible reports whether two versions share a major version.
func (sv Version) Compatible(other Version) bool {
	return sv.Major == other.Major
}
