// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package container models the DXIL/DXBC shader container format.
//
// A compiled DirectX shader is a single binary blob holding a fixed header,
// a table of absolute part offsets, and a sequence of tagged parts. Each
// part starts with a four-character code and a byte size, followed by the
// part data. The DXIL program itself, its input and output signatures, the
// feature-requirement flags, and auxiliary data such as debug names and
// root signatures all travel as parts of the same container.
//
// # Layout
//
//	Header      "DXBC" magic, 16-byte hash, version, total size, part count
//	Offsets     part count x uint32 absolute byte offsets
//	Parts       FourCC tag, uint32 byte size, then size bytes of data
//
// All integers are little-endian. Part offsets point at the part tag, not
// at the part data.
//
// # Reflection
//
// Load validates a buffer and returns a Container for structured access:
//
//	c, err := container.Load(blob)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	idx, err := c.FindFirstPart(container.TagDXIL)
//	hdr, err := c.ProgramHeader(idx)
//
// Load is strict: a malformed header or an out-of-bounds part table fails
// with a typed error. For degrading gracefully on hostile or truncated
// input, use the bitview package instead, which annotates problems into
// the decoded tree rather than failing.
//
// # Construction
//
// ContainerBuilder assembles containers from parts, mirroring the layout
// rules above. The part body helpers (ProgramPartBody, SignaturePartBody,
// FeatureFlagsPartBody, DebugNamePartBody) build well-formed bodies for
// the structured part kinds.
package container
