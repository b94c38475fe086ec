// Package graph implements the build graph: the dependency resolver that
// reduces a set of requested port origins to a partially ordered build
// set, and the node storage the scheduler mutates as builds complete.
package graph

import (
	"fmt"
	"strings"
)

// PortId is the stable identity of a build target. Two PortIds are equal
// iff both fields match byte-for-byte.
type PortId struct {
	Origin string // "category/name"
	Flavor string // "" for the unflavored default
}

func (id PortId) String() string {
	if id.Flavor == "" {
		return id.Origin
	}
	return id.Origin + "@" + id.Flavor
}

// PackageFileName derives the on-disk package file name the sandbox
// builder writes to and the repository's All directory indexes by: the
// origin with "/" flattened to "_", the flavor if any, the version, and
// a 12-hex-digit prefix of the fingerprint so two builds of the same
// version with different transitive inputs never collide.
func PackageFileName(id PortId, version string, fingerprint [32]byte) string {
	name := strings.ReplaceAll(id.Origin, "/", "_")
	if id.Flavor != "" {
		name += "-" + id.Flavor
	}
	return fmt.Sprintf("%s-%s-%x.pkg", name, version, fingerprint[:6])
}

// Less gives the lexicographic order used as the final scheduling tie-break.
func (id PortId) Less(other PortId) bool {
	if id.Origin != other.Origin {
		return id.Origin < other.Origin
	}
	return id.Flavor < other.Flavor
}

// DepType names one of the four dependency phases a port can declare
// (EXTRACT, PATCH, BUILD, RUN). TEST is a fifth, included only when
// resolving for the `test` directive.
type DepType int

const (
	DepExtract DepType = iota
	DepPatch
	DepBuild
	DepRun
	DepTest
	depTypeCount
)

func (t DepType) String() string {
	switch t {
	case DepExtract:
		return "EXTRACT"
	case DepPatch:
		return "PATCH"
	case DepBuild:
		return "BUILD"
	case DepRun:
		return "RUN"
	case DepTest:
		return "TEST"
	default:
		return fmt.Sprintf("DepType(%d)", int(t))
	}
}
