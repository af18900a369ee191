/*
Copyright 2024 The InfraWeave Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package semverx wraps Masterminds/semver/v3 with the padding and
// comparison rules spec.md §4.C1 requires: a zero-padded sort key so
// lexicographic order on the SK matches semantic version order, and a
// comparison that ignores build metadata but respects prerelease.
package semverx

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version wraps a parsed semantic version alongside its original
// string form (build metadata included) for round-tripping.
type Version struct {
	raw string
	v   *semver.Version
}

// Parse parses a semver string, optionally carrying build metadata and
// a prerelease identifier (e.g. "0.1.2-dev+test.10").
func Parse(s string) (*Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("parse version %q: %w", s, err)
	}
	return &Version{raw: s, v: v}, nil
}

// String returns the original, unpadded version string.
func (v *Version) String() string { return v.raw }

// Prerelease returns the prerelease identifier (empty for a stable
// release), e.g. "dev" for "0.1.2-dev+test.10".
func (v *Version) Prerelease() string { return v.v.Prerelease() }

// PrereleaseTrack returns the leading dot-separated token of the
// prerelease identifier, which is what ensure_track_matches_version
// compares against the publish track (spec.md §4.C3 step 5).
func (v *Version) PrereleaseTrack() string {
	pre := v.v.Prerelease()
	if pre == "" {
		return ""
	}
	if i := strings.IndexByte(pre, '.'); i >= 0 {
		return pre[:i]
	}
	return pre
}

// Metadata returns the build metadata suffix, if any.
func (v *Version) Metadata() string { return v.v.Metadata() }

// Padded returns the zero-padded "NNN.NNN.NNN[-pre][+build]" form used
// as the SK suffix so that lexicographic sort matches semantic order.
// Prerelease identifiers are padded token-by-token so "dev.2" sorts
// before "dev.10". A stable release pads to a prefix of its own
// prereleases and so sorts before them ("001.000.000" <
// "001.000.000-rc1"), the reverse of their semantic order.
func (v *Version) Padded() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%03d.%03d.%03d", v.v.Major(), v.v.Minor(), v.v.Patch())
	if pre := v.v.Prerelease(); pre != "" {
		b.WriteByte('-')
		b.WriteString(padDotted(pre))
	}
	if meta := v.v.Metadata(); meta != "" {
		b.WriteByte('+')
		b.WriteString(padDotted(meta))
	}
	return b.String()
}

func padDotted(s string) string {
	parts := strings.Split(s, ".")
	for i, p := range parts {
		if isAllDigits(p) {
			parts[i] = fmt.Sprintf("%06d", mustAtoi(p))
		}
	}
	return strings.Join(parts, ".")
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func mustAtoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// CompareIgnoringBuild compares two versions by (major, minor, patch,
// prerelease) only, per spec.md P1: build metadata never participates
// in version ordering.
func (v *Version) CompareIgnoringBuild(other *Version) int {
	if c := compareInt(v.v.Major(), other.v.Major()); c != 0 {
		return c
	}
	if c := compareInt(v.v.Minor(), other.v.Minor()); c != 0 {
		return c
	}
	if c := compareInt(v.v.Patch(), other.v.Patch()); c != 0 {
		return c
	}
	return comparePrerelease(padDotted(v.v.Prerelease()), padDotted(other.v.Prerelease()))
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePrerelease follows semver's rule that a version with no
// prerelease is greater than one with a prerelease (1.0.0 > 1.0.0-rc1),
// and otherwise compares the identifiers lexicographically
// (CompareIgnoringBuild passes them through padDotted, so numeric
// tokens order numerically, as in Padded).
func comparePrerelease(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "" && b != "":
		return 1
	case a != "" && b == "":
		return -1
	case a == b:
		return 0
	case a < b:
		return -1
	default:
		return 1
	}
}

// EqualIgnoringBuild reports whether two versions share
// (major, minor, patch, prerelease) but may differ in build metadata —
// the "same version, new build" case P1 requires accepting.
func (v *Version) EqualIgnoringBuild(other *Version) bool {
	return v.CompareIgnoringBuild(other) == 0
}

// SameBuild reports whether two versions are identical including
// build metadata — republishing this exact combination is rejected.
func (v *Version) SameBuild(other *Version) bool {
	return v.EqualIgnoringBuild(other) && v.Metadata() == other.Metadata()
}
