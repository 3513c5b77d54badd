// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package container

import (
	"fmt"

	"github.com/gogpu/dxbc/bitstream"
)

// ShaderKind identifies the pipeline stage a program was compiled for.
type ShaderKind uint16

const (
	// ShaderKindPixel is a pixel (fragment) shader.
	ShaderKindPixel ShaderKind = iota

	// ShaderKindVertex is a vertex shader.
	ShaderKindVertex

	// ShaderKindGeometry is a geometry shader.
	ShaderKindGeometry

	// ShaderKindHull is a hull (tessellation control) shader.
	ShaderKindHull

	// ShaderKindDomain is a domain (tessellation evaluation) shader.
	ShaderKindDomain

	// ShaderKindCompute is a compute shader.
	ShaderKindCompute

	// ShaderKindLibrary is a shader library.
	ShaderKindLibrary

	// ShaderKindRayGeneration is a ray generation shader.
	ShaderKindRayGeneration

	// ShaderKindIntersection is a ray intersection shader.
	ShaderKindIntersection

	// ShaderKindAnyHit is a ray any-hit shader.
	ShaderKindAnyHit

	// ShaderKindClosestHit is a ray closest-hit shader.
	ShaderKindClosestHit

	// ShaderKindMiss is a ray miss shader.
	ShaderKindMiss

	// ShaderKindCallable is a callable shader.
	ShaderKindCallable

	// ShaderKindMesh is a mesh shader.
	ShaderKindMesh

	// ShaderKindAmplification is an amplification (task) shader.
	ShaderKindAmplification

	// ShaderKindInvalid marks an unrecognized stage.
	ShaderKindInvalid
)

// String returns a human-readable shader kind name.
func (k ShaderKind) String() string {
	switch k {
	case ShaderKindPixel:
		return "Pixel"
	case ShaderKindVertex:
		return "Vertex"
	case ShaderKindGeometry:
		return "Geometry"
	case ShaderKindHull:
		return "Hull"
	case ShaderKindDomain:
		return "Domain"
	case ShaderKindCompute:
		return "Compute"
	case ShaderKindLibrary:
		return "Library"
	case ShaderKindRayGeneration:
		return "RayGeneration"
	case ShaderKindIntersection:
		return "Intersection"
	case ShaderKindAnyHit:
		return "AnyHit"
	case ShaderKindClosestHit:
		return "ClosestHit"
	case ShaderKindMiss:
		return "Miss"
	case ShaderKindCallable:
		return "Callable"
	case ShaderKindMesh:
		return "Mesh"
	case ShaderKindAmplification:
		return "Amplification"
	default:
		return "Invalid"
	}
}

// ProgramVersion packs the shader kind and model version of a program.
// The kind occupies bits 16-31, the major version bits 4-7 and the minor
// version bits 0-3.
type ProgramVersion uint32

// MakeProgramVersion packs a shader kind and model version.
func MakeProgramVersion(kind ShaderKind, major, minor uint8) ProgramVersion {
	return ProgramVersion(uint32(kind)<<16 | uint32(major&0xF)<<4 | uint32(minor&0xF))
}

// Kind returns the pipeline stage.
func (v ProgramVersion) Kind() ShaderKind {
	k := ShaderKind(v >> 16)
	if k > ShaderKindAmplification {
		return ShaderKindInvalid
	}
	return k
}

// Major returns the shader model major version.
func (v ProgramVersion) Major() uint8 {
	return uint8(v>>4) & 0xF
}

// Minor returns the shader model minor version.
func (v ProgramVersion) Minor() uint8 {
	return uint8(v) & 0xF
}

// String formats the version as "Kind major.minor", e.g. "Compute 6.0".
func (v ProgramVersion) String() string {
	return fmt.Sprintf("%s %d.%d", v.Kind(), v.Major(), v.Minor())
}

// DxilMagic is the sub-magic opening the bitcode header of a program part.
const DxilMagic FourCC = 'D' | 'X'<<8 | 'I'<<16 | 'L'<<24

// ProgramHeaderSize is the byte size of the program header, the bitcode
// sub-header included.
const ProgramHeaderSize = 24

// ProgramHeader is the header of a DXIL program part. It prefixes the
// LLVM bitcode with the stage, shader model and bitcode placement.
type ProgramHeader struct {
	// Version identifies the stage and shader model.
	Version ProgramVersion

	// SizeInUint32 is the size of the whole program part in uint32 units,
	// this header included.
	SizeInUint32 uint32

	// DxilVersion is the packed DXIL version of the bitcode.
	DxilVersion uint32

	// BitcodeOffset is the byte offset of the bitcode, relative to the
	// start of the bitcode sub-header (byte 8 of the part data).
	BitcodeOffset uint32

	// BitcodeSize is the byte size of the bitcode.
	BitcodeSize uint32
}

// ParseProgramHeader reads the program header at the start of a program
// part's data.
func ParseProgramHeader(body []byte) (*ProgramHeader, error) {
	if len(body) < ProgramHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, program header needs %d",
			ErrTruncated, len(body), ProgramHeaderSize)
	}
	r := bitstream.NewReader(body)
	var h ProgramHeader

	ver, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	h.Version = ProgramVersion(ver)
	if h.SizeInUint32, err = r.ReadUint32(); err != nil {
		return nil, err
	}
	magic, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if FourCC(magic) != DxilMagic {
		return nil, fmt.Errorf("%w: found %s", ErrProgramMagic, FourCC(magic))
	}
	if h.DxilVersion, err = r.ReadUint32(); err != nil {
		return nil, err
	}
	if h.BitcodeOffset, err = r.ReadUint32(); err != nil {
		return nil, err
	}
	if h.BitcodeSize, err = r.ReadUint32(); err != nil {
		return nil, err
	}
	return &h, nil
}

// Bitcode extracts the LLVM bitcode stream from a program part's data,
// using the placement recorded in the header.
func (h *ProgramHeader) Bitcode(body []byte) ([]byte, error) {
	// The offset is relative to the bitcode sub-header at byte 8.
	start := uint64(8) + uint64(h.BitcodeOffset)
	end := start + uint64(h.BitcodeSize)
	if end > uint64(len(body)) {
		return nil, fmt.Errorf("%w: bitcode [%d, %d) in %d byte part",
			ErrPartBounds, start, end, len(body))
	}
	return body[start:end], nil
}
