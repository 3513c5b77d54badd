// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package container

import (
	"fmt"

	"github.com/gogpu/dxbc/bitstream"
)

// SystemValue identifies the system-interpreted semantic of a signature
// parameter. Zero means the parameter carries ordinary user data.
type SystemValue uint32

const (
	// SVUndefined marks a user-defined semantic.
	SVUndefined SystemValue = 0

	// SVPosition is the clip-space position.
	SVPosition SystemValue = 1

	// SVClipDistance is a clip distance output.
	SVClipDistance SystemValue = 2

	// SVCullDistance is a cull distance output.
	SVCullDistance SystemValue = 3

	// SVRenderTargetArrayIndex selects the render target slice.
	SVRenderTargetArrayIndex SystemValue = 4

	// SVViewportArrayIndex selects the viewport.
	SVViewportArrayIndex SystemValue = 5

	// SVVertexID is the vertex identifier.
	SVVertexID SystemValue = 6

	// SVPrimitiveID is the primitive identifier.
	SVPrimitiveID SystemValue = 7

	// SVInstanceID is the instance identifier.
	SVInstanceID SystemValue = 8

	// SVIsFrontFace reports triangle facing.
	SVIsFrontFace SystemValue = 9

	// SVSampleIndex is the sample index in sample-frequency shading.
	SVSampleIndex SystemValue = 10

	// SVFinalQuadEdgeTessFactor through SVFinalLineDensityTessFactor are
	// tessellation factors produced by hull shaders.
	SVFinalQuadEdgeTessFactor    SystemValue = 11
	SVFinalQuadInsideTessFactor  SystemValue = 12
	SVFinalTriEdgeTessFactor     SystemValue = 13
	SVFinalTriInsideTessFactor   SystemValue = 14
	SVFinalLineDetailTessFactor  SystemValue = 15
	SVFinalLineDensityTessFactor SystemValue = 16

	// SVBarycentrics carries perspective-correct barycentric weights.
	SVBarycentrics SystemValue = 23

	// SVShadingRate is the variable shading rate.
	SVShadingRate SystemValue = 24

	// SVCullPrimitive is the per-primitive cull flag from mesh shaders.
	SVCullPrimitive SystemValue = 25

	// SVTarget is a render target color output.
	SVTarget SystemValue = 64

	// SVDepth is the depth output.
	SVDepth SystemValue = 65

	// SVCoverage is the sample coverage mask.
	SVCoverage SystemValue = 66

	// SVDepthGreaterEqual is a conservative depth output.
	SVDepthGreaterEqual SystemValue = 67

	// SVDepthLessEqual is a conservative depth output.
	SVDepthLessEqual SystemValue = 68

	// SVStencilRef is the programmable stencil reference.
	SVStencilRef SystemValue = 69

	// SVInnerCoverage reports fully-covered pixels.
	SVInnerCoverage SystemValue = 70
)

// String returns a human-readable system value name.
func (s SystemValue) String() string {
	switch s {
	case SVUndefined:
		return "Undefined"
	case SVPosition:
		return "Position"
	case SVClipDistance:
		return "ClipDistance"
	case SVCullDistance:
		return "CullDistance"
	case SVRenderTargetArrayIndex:
		return "RenderTargetArrayIndex"
	case SVViewportArrayIndex:
		return "ViewportArrayIndex"
	case SVVertexID:
		return "VertexID"
	case SVPrimitiveID:
		return "PrimitiveID"
	case SVInstanceID:
		return "InstanceID"
	case SVIsFrontFace:
		return "IsFrontFace"
	case SVSampleIndex:
		return "SampleIndex"
	case SVFinalQuadEdgeTessFactor:
		return "FinalQuadEdgeTessFactor"
	case SVFinalQuadInsideTessFactor:
		return "FinalQuadInsideTessFactor"
	case SVFinalTriEdgeTessFactor:
		return "FinalTriEdgeTessFactor"
	case SVFinalTriInsideTessFactor:
		return "FinalTriInsideTessFactor"
	case SVFinalLineDetailTessFactor:
		return "FinalLineDetailTessFactor"
	case SVFinalLineDensityTessFactor:
		return "FinalLineDensityTessFactor"
	case SVBarycentrics:
		return "Barycentrics"
	case SVShadingRate:
		return "ShadingRate"
	case SVCullPrimitive:
		return "CullPrimitive"
	case SVTarget:
		return "Target"
	case SVDepth:
		return "Depth"
	case SVCoverage:
		return "Coverage"
	case SVDepthGreaterEqual:
		return "DepthGreaterEqual"
	case SVDepthLessEqual:
		return "DepthLessEqual"
	case SVStencilRef:
		return "StencilRef"
	case SVInnerCoverage:
		return "InnerCoverage"
	default:
		return fmt.Sprintf("SystemValue(%d)", uint32(s))
	}
}

// ComponentType identifies the register component data type of a parameter.
type ComponentType uint32

const (
	// CompUnknown marks an unspecified component type.
	CompUnknown ComponentType = iota

	// CompUInt32 is a 32-bit unsigned integer.
	CompUInt32

	// CompSInt32 is a 32-bit signed integer.
	CompSInt32

	// CompFloat32 is a 32-bit float.
	CompFloat32

	// CompUInt16 is a 16-bit unsigned integer.
	CompUInt16

	// CompSInt16 is a 16-bit signed integer.
	CompSInt16

	// CompFloat16 is a 16-bit float.
	CompFloat16

	// CompUInt64 is a 64-bit unsigned integer.
	CompUInt64

	// CompSInt64 is a 64-bit signed integer.
	CompSInt64

	// CompFloat64 is a 64-bit float.
	CompFloat64
)

// String returns a human-readable component type name.
func (c ComponentType) String() string {
	switch c {
	case CompUnknown:
		return "Unknown"
	case CompUInt32:
		return "UInt32"
	case CompSInt32:
		return "SInt32"
	case CompFloat32:
		return "Float32"
	case CompUInt16:
		return "UInt16"
	case CompSInt16:
		return "SInt16"
	case CompFloat16:
		return "Float16"
	case CompUInt64:
		return "UInt64"
	case CompSInt64:
		return "SInt64"
	case CompFloat64:
		return "Float64"
	default:
		return fmt.Sprintf("ComponentType(%d)", uint32(c))
	}
}

// MinPrecision is the minimum precision a parameter may be computed at.
type MinPrecision uint32

const (
	// PrecisionDefault requests full precision.
	PrecisionDefault MinPrecision = 0

	// PrecisionFloat16 permits 16-bit float evaluation.
	PrecisionFloat16 MinPrecision = 1

	// PrecisionFloat2_8 permits 2.8 fixed-point evaluation.
	PrecisionFloat2_8 MinPrecision = 2

	// PrecisionSInt16 permits 16-bit signed integer evaluation.
	PrecisionSInt16 MinPrecision = 4

	// PrecisionUInt16 permits 16-bit unsigned integer evaluation.
	PrecisionUInt16 MinPrecision = 5

	// PrecisionAny16 permits any 16-bit evaluation.
	PrecisionAny16 MinPrecision = 0xF0

	// PrecisionAny10 permits any 10-bit evaluation.
	PrecisionAny10 MinPrecision = 0xF1
)

// String returns a human-readable precision name.
func (p MinPrecision) String() string {
	switch p {
	case PrecisionDefault:
		return "Default"
	case PrecisionFloat16:
		return "Float16"
	case PrecisionFloat2_8:
		return "Float2_8"
	case PrecisionSInt16:
		return "SInt16"
	case PrecisionUInt16:
		return "UInt16"
	case PrecisionAny16:
		return "Any16"
	case PrecisionAny10:
		return "Any10"
	default:
		return fmt.Sprintf("MinPrecision(%d)", uint32(p))
	}
}

// SignatureLayout describes which optional fields a signature tag's
// parameter records carry.
type SignatureLayout struct {
	// HasStream indicates a leading uint32 stream index per parameter.
	HasStream bool

	// HasMinPrecision indicates a trailing uint32 precision per parameter.
	HasMinPrecision bool
}

// RecordSize returns the byte size of one parameter record under this
// layout, the indirect semantic name excluded.
func (l SignatureLayout) RecordSize() int {
	size := 24
	if l.HasStream {
		size += 4
	}
	if l.HasMinPrecision {
		size += 4
	}
	return size
}

// LayoutOf returns the parameter record layout of a signature tag.
func LayoutOf(tag FourCC) (SignatureLayout, bool) {
	switch tag {
	case TagISGN, TagOSGN, TagPCSG:
		return SignatureLayout{}, true
	case TagOSG5:
		return SignatureLayout{HasStream: true}, true
	case TagISG1, TagOSG1, TagPSG1:
		return SignatureLayout{HasStream: true, HasMinPrecision: true}, true
	default:
		return SignatureLayout{}, false
	}
}

// paramTableOffset is the only parameter table placement this package
// implements: the records immediately follow the count and offset fields.
const paramTableOffset = 8

// SignatureParam is one row of a signature parameter table.
type SignatureParam struct {
	// Stream is the geometry stream index. Zero for tags without streams.
	Stream uint32

	// SemanticName is the semantic the parameter binds to, e.g. "COLOR".
	SemanticName string

	// SemanticIndex distinguishes arrayed semantics, e.g. COLOR1.
	SemanticIndex uint32

	// SystemValue is the system-interpreted meaning, if any.
	SystemValue SystemValue

	// ComponentType is the register component data type.
	ComponentType ComponentType

	// Register is the packed register index.
	Register uint32

	// Mask is the component mask the parameter occupies.
	Mask uint8

	// ReadWriteMask is the component mask actually read or written.
	ReadWriteMask uint8

	// MinPrecision is the minimum evaluation precision. PrecisionDefault
	// for tags without precision fields.
	MinPrecision MinPrecision
}

// Signature is a parsed signature part.
type Signature struct {
	// Kind is the part tag the signature was parsed from.
	Kind FourCC

	// Params are the parameters in table order.
	Params []SignatureParam
}

// ParseSignature parses a signature part's data. The tag selects the
// record layout.
//
// Only the direct table placement is implemented: a parameter offset other
// than 8 fails with ErrSignatureLayout rather than guessing at padding.
func ParseSignature(tag FourCC, body []byte) (*Signature, error) {
	layout, ok := LayoutOf(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a signature tag", ErrPartKind, tag)
	}

	r := bitstream.NewReader(body)
	count, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	tableOff, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if tableOff != paramTableOffset {
		return nil, fmt.Errorf("%w: parameter table at offset %d", ErrSignatureLayout, tableOff)
	}

	recordSize := layout.RecordSize()
	need := uint64(paramTableOffset) + uint64(count)*uint64(recordSize)
	if need > uint64(len(body)) {
		return nil, fmt.Errorf("%w: %d parameters need %d bytes, part has %d",
			ErrTruncated, count, need, len(body))
	}

	sig := &Signature{Kind: tag, Params: make([]SignatureParam, 0, count)}
	for i := uint32(0); i < count; i++ {
		p, err := parseSignatureParam(r, layout, body)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		sig.Params = append(sig.Params, p)
	}
	return sig, nil
}

// parseSignatureParam reads one record at the reader's position. Indirect
// semantic names resolve against the whole part body.
func parseSignatureParam(r *bitstream.Reader, layout SignatureLayout, body []byte) (SignatureParam, error) {
	var p SignatureParam
	var err error

	if layout.HasStream {
		if p.Stream, err = r.ReadUint32(); err != nil {
			return p, err
		}
	}
	nameOff, err := r.ReadUint32()
	if err != nil {
		return p, err
	}
	if p.SemanticName, err = readName(body, nameOff); err != nil {
		return p, err
	}
	if p.SemanticIndex, err = r.ReadUint32(); err != nil {
		return p, err
	}
	sv, err := r.ReadUint32()
	if err != nil {
		return p, err
	}
	p.SystemValue = SystemValue(sv)
	ct, err := r.ReadUint32()
	if err != nil {
		return p, err
	}
	p.ComponentType = ComponentType(ct)
	if p.Register, err = r.ReadUint32(); err != nil {
		return p, err
	}
	if p.Mask, err = r.ReadUint8(); err != nil {
		return p, err
	}
	if p.ReadWriteMask, err = r.ReadUint8(); err != nil {
		return p, err
	}
	// Two alignment padding bytes close every record.
	if _, err = r.ReadUint16(); err != nil {
		return p, err
	}
	if layout.HasMinPrecision {
		mp, err := r.ReadUint32()
		if err != nil {
			return p, err
		}
		p.MinPrecision = MinPrecision(mp)
	}
	return p, nil
}

// readName resolves a semantic name offset to its null-terminated string.
// Offsets are relative to the start of the signature part data.
func readName(body []byte, off uint32) (string, error) {
	if uint64(off) >= uint64(len(body)) {
		return "", fmt.Errorf("%w: name offset %d in %d byte part", ErrPartBounds, off, len(body))
	}
	for end := off; end < uint32(len(body)); end++ {
		if body[end] == 0 {
			return string(body[off:end]), nil
		}
	}
	return "", fmt.Errorf("%w: name at offset %d is not null-terminated", ErrTruncated, off)
}
