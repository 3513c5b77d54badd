// Package dxbc inspects compiled shader containers.
//
// dxbc parses the container format produced by HLSL compilers (the
// "DXBC" blob wrapping DXIL programs, signatures and metadata) and
// exposes it two ways:
//   - container: strict typed reflection over headers, parts, program
//     headers, signatures and feature flags
//   - bitview: a bit-exact labeled range tree for hex viewers, built
//     leniently so corrupt input yields an annotated partial tree
//
// The root package provides the one-call paths; the subpackages give
// full control.
//
// Example usage:
//
//	blob, _ := os.ReadFile("shader.cso")
//
//	tree := dxbc.Outline(blob)
//	fmt.Print(bitview.Sprint(tree))
//
// For typed access, use Load:
//
//	c, err := dxbc.Load(blob)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if i, err := c.FindFirstPart(container.TagDXIL); err == nil {
//	    hdr, _ := c.ProgramHeader(i)
//	    fmt.Println(hdr.Version)
//	}
//
// To drive the external toolchain, see the dxc package.
package dxbc

import (
	"github.com/gogpu/dxbc/bitview"
	"github.com/gogpu/dxbc/container"
)

// Version is the library version.
const Version = "0.1.0"

// Outline decodes a blob into its labeled range tree. It never fails:
// malformed input produces a partial tree with error annotations on the
// nodes that could not be decoded.
func Outline(data []byte) *bitview.Node {
	return bitview.Decode(data)
}

// Load parses a blob as a container, strictly. Unlike Outline it
// rejects malformed input, so it is the right entry point for tools
// that consume parts rather than display them.
func Load(data []byte) (*container.Container, error) {
	return container.Load(data)
}

// NodeAt decodes a blob and returns the deepest node covering the given
// bit offset, or nil when the offset is outside the decoded tree. For
// repeated hit-testing decode once and use bitview.At directly.
func NodeAt(data []byte, bitOffset uint64) *bitview.Node {
	return bitview.At(bitview.Decode(data), bitOffset)
}

// Describe renders the decoded outline as indented text.
func Describe(data []byte) string {
	return bitview.Sprint(bitview.Decode(data))
}
