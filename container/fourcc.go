// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package container

import "fmt"

// FourCC is a four-character part tag packed into a little-endian uint32.
// The first character occupies the lowest byte.
type FourCC uint32

// MakeFourCC packs four characters into a FourCC.
func MakeFourCC(a, b, c, d byte) FourCC {
	return FourCC(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// Magic is the container signature occupying the first four bytes.
const Magic FourCC = 'D' | 'X'<<8 | 'B'<<16 | 'C'<<24

// Part tags defined by the container format.
const (
	// TagDXIL is the executable DXIL program.
	TagDXIL FourCC = 'D' | 'X'<<8 | 'I'<<16 | 'L'<<24

	// TagILDB is the DXIL program with embedded debug info.
	TagILDB FourCC = 'I' | 'L'<<8 | 'D'<<16 | 'B'<<24

	// TagSTAT is the reflection copy of the program.
	TagSTAT FourCC = 'S' | 'T'<<8 | 'A'<<16 | 'T'<<24

	// TagISGN is the input signature.
	TagISGN FourCC = 'I' | 'S'<<8 | 'G'<<16 | 'N'<<24

	// TagOSGN is the output signature.
	TagOSGN FourCC = 'O' | 'S'<<8 | 'G'<<16 | 'N'<<24

	// TagPCSG is the patch constant signature.
	TagPCSG FourCC = 'P' | 'C'<<8 | 'S'<<16 | 'G'<<24

	// TagOSG5 is the stream-aware output signature.
	TagOSG5 FourCC = 'O' | 'S'<<8 | 'G'<<16 | '5'<<24

	// TagISG1 is the input signature with stream and precision fields.
	TagISG1 FourCC = 'I' | 'S'<<8 | 'G'<<16 | '1'<<24

	// TagOSG1 is the output signature with stream and precision fields.
	TagOSG1 FourCC = 'O' | 'S'<<8 | 'G'<<16 | '1'<<24

	// TagPSG1 is the patch constant signature with stream and precision fields.
	TagPSG1 FourCC = 'P' | 'S'<<8 | 'G'<<16 | '1'<<24

	// TagSFI0 is the shader feature flags part.
	TagSFI0 FourCC = 'S' | 'F'<<8 | 'I'<<16 | '0'<<24

	// TagRDEF is the resource definition part emitted by FXC.
	TagRDEF FourCC = 'R' | 'D'<<8 | 'E'<<16 | 'F'<<24

	// TagPSV0 is the pipeline state validation data.
	TagPSV0 FourCC = 'P' | 'S'<<8 | 'V'<<16 | '0'<<24

	// TagRTS0 is the serialized root signature.
	TagRTS0 FourCC = 'R' | 'T'<<8 | 'S'<<16 | '0'<<24

	// TagILDN is the debug name part pointing at external debug info.
	TagILDN FourCC = 'I' | 'L'<<8 | 'D'<<16 | 'N'<<24

	// TagHASH is the shader content hash.
	TagHASH FourCC = 'H' | 'A'<<8 | 'S'<<16 | 'H'<<24

	// TagSHDR is the DXBC bytecode emitted by FXC for Shader Model 4.
	TagSHDR FourCC = 'S' | 'H'<<8 | 'D'<<16 | 'R'<<24

	// TagSHEX is the DXBC bytecode emitted by FXC for Shader Model 5.
	TagSHEX FourCC = 'S' | 'H'<<8 | 'E'<<16 | 'X'<<24

	// TagPRIV is application-private data.
	TagPRIV FourCC = 'P' | 'R'<<8 | 'I'<<16 | 'V'<<24

	// TagSRCI is the shader source info part.
	TagSRCI FourCC = 'S' | 'R'<<8 | 'C'<<16 | 'I'<<24
)

// String returns the four characters of the tag. Non-printable characters
// are escaped as \xNN so hostile tags remain displayable.
func (f FourCC) String() string {
	buf := make([]byte, 0, 4)
	for i := 0; i < 4; i++ {
		c := byte(f >> (8 * i))
		if c >= 0x20 && c < 0x7F {
			buf = append(buf, c)
		} else {
			buf = append(buf, fmt.Sprintf("\\x%02X", c)...)
		}
	}
	return string(buf)
}

// PartKind classifies a part tag into the decode strategy its body uses.
type PartKind uint8

const (
	// PartKindUnknown is a tag this package does not recognize.
	PartKindUnknown PartKind = iota

	// PartKindProgram is a DXIL program part with a program header.
	PartKindProgram

	// PartKindSignature is a parameter signature table.
	PartKindSignature

	// PartKindFeatureInfo is the 64-bit feature flags part.
	PartKindFeatureInfo

	// PartKindDebugName is the external debug name part.
	PartKindDebugName

	// PartKindOpaque is a recognized tag whose body has no structured decode.
	PartKindOpaque
)

// String returns a human-readable part kind name.
func (k PartKind) String() string {
	switch k {
	case PartKindProgram:
		return "Program"
	case PartKindSignature:
		return "Signature"
	case PartKindFeatureInfo:
		return "FeatureInfo"
	case PartKindDebugName:
		return "DebugName"
	case PartKindOpaque:
		return "Opaque"
	default:
		return "Unknown"
	}
}

// KindOf classifies a part tag.
func KindOf(tag FourCC) PartKind {
	switch tag {
	case TagDXIL, TagILDB, TagSTAT:
		return PartKindProgram
	case TagISGN, TagOSGN, TagPCSG, TagOSG5, TagISG1, TagOSG1, TagPSG1:
		return PartKindSignature
	case TagSFI0:
		return PartKindFeatureInfo
	case TagILDN:
		return PartKindDebugName
	case TagRDEF, TagPSV0, TagRTS0, TagHASH, TagSHDR, TagSHEX, TagPRIV, TagSRCI:
		return PartKindOpaque
	default:
		return PartKindUnknown
	}
}

// Description returns a short human-readable description of a known tag,
// or the empty string for unrecognized tags.
func Description(tag FourCC) string {
	switch tag {
	case TagDXIL:
		return "DXIL program"
	case TagILDB:
		return "DXIL program with debug info"
	case TagSTAT:
		return "reflection program"
	case TagISGN:
		return "input signature"
	case TagOSGN:
		return "output signature"
	case TagPCSG:
		return "patch constant signature"
	case TagOSG5:
		return "output signature (streams)"
	case TagISG1:
		return "input signature (SM6)"
	case TagOSG1:
		return "output signature (SM6)"
	case TagPSG1:
		return "patch constant signature (SM6)"
	case TagSFI0:
		return "feature flags"
	case TagRDEF:
		return "resource definitions"
	case TagPSV0:
		return "pipeline state validation"
	case TagRTS0:
		return "root signature"
	case TagILDN:
		return "debug name"
	case TagHASH:
		return "shader hash"
	case TagSHDR:
		return "DXBC bytecode (SM4)"
	case TagSHEX:
		return "DXBC bytecode (SM5)"
	case TagPRIV:
		return "private data"
	case TagSRCI:
		return "source info"
	default:
		return ""
	}
}
