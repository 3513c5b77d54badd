// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package container

import (
	"encoding/binary"
	"fmt"
)

// ContainerBuilder assembles a container from parts.
//
// Parts are emitted in the order they were added. The builder writes a
// zero hash; signing is the validator's concern, not the serializer's.
type ContainerBuilder struct {
	parts []builderPart
}

type builderPart struct {
	tag  FourCC
	data []byte
}

// NewContainerBuilder creates an empty builder.
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{}
}

// AddPart appends one part. The data is borrowed until Build is called.
func (b *ContainerBuilder) AddPart(tag FourCC, data []byte) {
	b.parts = append(b.parts, builderPart{tag: tag, data: data})
}

// PartCount returns the number of parts added so far.
func (b *ContainerBuilder) PartCount() int {
	return len(b.parts)
}

// Build serializes the container: header, offset table, then each part
// prefixed with its tag and byte size.
func (b *ContainerBuilder) Build() ([]byte, error) {
	size := uint64(HeaderSize) + uint64(len(b.parts))*4
	for _, p := range b.parts {
		size += PartHeaderSize + uint64(len(p.data))
	}
	if size > MaxContainerSize {
		return nil, fmt.Errorf("container of %d bytes exceeds maximum %d", size, uint64(MaxContainerSize))
	}

	buf := make([]byte, 0, size)
	le := binary.LittleEndian

	buf = le.AppendUint32(buf, uint32(Magic))
	buf = append(buf, make([]byte, HashSize)...)
	buf = le.AppendUint16(buf, VersionMajor)
	buf = le.AppendUint16(buf, VersionMinor)
	buf = le.AppendUint32(buf, uint32(size))
	buf = le.AppendUint32(buf, uint32(len(b.parts)))

	offset := uint32(HeaderSize) + uint32(len(b.parts))*4
	for _, p := range b.parts {
		buf = le.AppendUint32(buf, offset)
		offset += PartHeaderSize + uint32(len(p.data))
	}
	for _, p := range b.parts {
		buf = le.AppendUint32(buf, uint32(p.tag))
		buf = le.AppendUint32(buf, uint32(len(p.data)))
		buf = append(buf, p.data...)
	}
	return buf, nil
}

// ProgramPartBody builds the data of a program part: the program header
// followed by the bitcode, padded to a whole number of uint32 words.
func ProgramPartBody(version ProgramVersion, dxilVersion uint32, bitcode []byte) []byte {
	padded := (len(bitcode) + 3) &^ 3
	total := ProgramHeaderSize + padded

	buf := make([]byte, 0, total)
	le := binary.LittleEndian
	buf = le.AppendUint32(buf, uint32(version))
	buf = le.AppendUint32(buf, uint32(total/4))
	buf = le.AppendUint32(buf, uint32(DxilMagic))
	buf = le.AppendUint32(buf, dxilVersion)
	// The bitcode offset is relative to the sub-header at byte 8; the
	// stream follows the sub-header's 16 bytes directly.
	buf = le.AppendUint32(buf, 16)
	buf = le.AppendUint32(buf, uint32(len(bitcode)))
	buf = append(buf, bitcode...)
	buf = append(buf, make([]byte, padded-len(bitcode))...)
	return buf
}

// SignaturePartBody builds the data of a signature part under the layout
// of the given tag: count and table offset, the parameter records, then a
// deduplicated semantic name table padded to four bytes.
func SignaturePartBody(tag FourCC, params []SignatureParam) ([]byte, error) {
	layout, ok := LayoutOf(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a signature tag", ErrPartKind, tag)
	}

	recordSize := layout.RecordSize()
	namesStart := paramTableOffset + len(params)*recordSize

	// Lay out the name table first so records can point into it.
	nameOffsets := make(map[string]uint32, len(params))
	var names []byte
	for _, p := range params {
		if _, seen := nameOffsets[p.SemanticName]; seen {
			continue
		}
		nameOffsets[p.SemanticName] = uint32(namesStart + len(names))
		names = append(names, p.SemanticName...)
		names = append(names, 0)
	}
	for len(names)%4 != 0 {
		names = append(names, 0)
	}

	buf := make([]byte, 0, namesStart+len(names))
	le := binary.LittleEndian
	buf = le.AppendUint32(buf, uint32(len(params)))
	buf = le.AppendUint32(buf, paramTableOffset)
	for _, p := range params {
		if layout.HasStream {
			buf = le.AppendUint32(buf, p.Stream)
		}
		buf = le.AppendUint32(buf, nameOffsets[p.SemanticName])
		buf = le.AppendUint32(buf, p.SemanticIndex)
		buf = le.AppendUint32(buf, uint32(p.SystemValue))
		buf = le.AppendUint32(buf, uint32(p.ComponentType))
		buf = le.AppendUint32(buf, p.Register)
		buf = append(buf, p.Mask, p.ReadWriteMask)
		buf = le.AppendUint16(buf, 0)
		if layout.HasMinPrecision {
			buf = le.AppendUint32(buf, uint32(p.MinPrecision))
		}
	}
	buf = append(buf, names...)
	return buf, nil
}

// FeatureFlagsPartBody builds the data of an SFI0 part.
func FeatureFlagsPartBody(flags FeatureFlags) []byte {
	buf := make([]byte, 0, FeatureFlagsPartSize)
	return binary.LittleEndian.AppendUint64(buf, uint64(flags))
}

// DebugNamePartBody builds the data of an ILDN part, padded to four bytes.
func DebugNamePartBody(name string) []byte {
	// Flags, name length, the name itself, a terminator, then padding.
	total := (4 + len(name) + 1 + 3) &^ 3
	buf := make([]byte, 0, total)
	le := binary.LittleEndian
	buf = le.AppendUint16(buf, 0)
	buf = le.AppendUint16(buf, uint16(len(name)))
	buf = append(buf, name...)
	buf = append(buf, make([]byte, total-len(buf))...)
	return buf
}
