// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package container

import (
	"errors"
	"fmt"

	"github.com/gogpu/dxbc/bitstream"
)

// Binary layout constants.
const (
	// HeaderSize is the size of the fixed container header in bytes.
	HeaderSize = 32

	// PartHeaderSize is the size of a part's tag and byte-size prefix.
	PartHeaderSize = 8

	// HashSize is the size of the container content hash in bytes.
	HashSize = 16

	// MaxContainerSize is the largest container the format permits.
	MaxContainerSize = 0x80000000

	// VersionMajor and VersionMinor identify the container layout revision
	// written by ContainerBuilder.
	VersionMajor = 1
	VersionMinor = 0
)

// Errors returned by the reflection API.
var (
	// ErrNotContainer indicates the buffer does not begin with the "DXBC" magic.
	ErrNotContainer = errors.New("not a DXIL container")

	// ErrTruncated indicates the buffer ends before a complete structure.
	ErrTruncated = errors.New("container data is truncated")

	// ErrPartOutOfRange indicates a part index outside [0, PartCount).
	ErrPartOutOfRange = errors.New("part index out of range")

	// ErrPartNotFound indicates no part carries the requested tag.
	ErrPartNotFound = errors.New("no part with the requested tag")

	// ErrPartBounds indicates a part's offset or size lies outside the container.
	ErrPartBounds = errors.New("part lies outside the container data")

	// ErrPartKind indicates a typed accessor was used on a part of another kind.
	ErrPartKind = errors.New("part does not have the requested kind")

	// ErrProgramMagic indicates a program part without the "DXIL" sub-magic.
	ErrProgramMagic = errors.New("program part missing DXIL magic")

	// ErrSignatureLayout indicates a signature parameter table whose layout
	// this package does not implement.
	ErrSignatureLayout = errors.New("unsupported signature parameter table layout")
)

// Header is the fixed container header.
type Header struct {
	// Hash is the MD5-shaped content digest over the rest of the container.
	Hash [HashSize]byte

	// VersionMajor and VersionMinor identify the container layout revision.
	VersionMajor uint16
	VersionMinor uint16

	// ContainerSize is the total container size in bytes, header included.
	ContainerSize uint32

	// PartCount is the number of entries in the part offset table.
	PartCount uint32
}

// ParseHeader reads and validates the fixed header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncated, len(data), HeaderSize)
	}
	r := bitstream.NewReader(data)
	magic, err := r.ReadUint32()
	if err != nil {
		return h, err
	}
	if FourCC(magic) != Magic {
		return h, fmt.Errorf("%w: magic %s", ErrNotContainer, FourCC(magic))
	}
	hash, err := r.ReadBytes(HashSize)
	if err != nil {
		return h, err
	}
	copy(h.Hash[:], hash)
	if h.VersionMajor, err = r.ReadUint16(); err != nil {
		return h, err
	}
	if h.VersionMinor, err = r.ReadUint16(); err != nil {
		return h, err
	}
	if h.ContainerSize, err = r.ReadUint32(); err != nil {
		return h, err
	}
	if h.PartCount, err = r.ReadUint32(); err != nil {
		return h, err
	}
	return h, nil
}

// PartInfo describes one part without exposing its data.
type PartInfo struct {
	// Kind is the four-character tag of the part.
	Kind FourCC

	// Offset is the absolute byte offset of the part header.
	Offset uint32

	// Size is the byte size of the part data, tag and size prefix excluded.
	Size uint32
}

// Container provides structured access to a validated container buffer.
//
// The buffer is borrowed, never copied. A Container is immutable after Load
// and safe for concurrent use.
type Container struct {
	data    []byte
	header  Header
	offsets []uint32
}

// Load validates data as a container and returns a reflection handle.
//
// Validation is strict: the header must be intact, the claimed container
// size must not exceed the buffer, every offset table entry must be
// present, and every part header and part body must lie inside the
// container. Content of individual parts is not validated here.
func Load(data []byte) (*Container, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if uint64(h.ContainerSize) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: header claims %d bytes, buffer has %d",
			ErrTruncated, h.ContainerSize, len(data))
	}
	if h.ContainerSize < HeaderSize {
		return nil, fmt.Errorf("%w: header claims %d bytes, below header size",
			ErrTruncated, h.ContainerSize)
	}

	tableEnd := uint64(HeaderSize) + uint64(h.PartCount)*4
	if tableEnd > uint64(h.ContainerSize) {
		return nil, fmt.Errorf("%w: offset table for %d parts exceeds container size %d",
			ErrTruncated, h.PartCount, h.ContainerSize)
	}

	c := &Container{
		data:    data[:h.ContainerSize],
		header:  h,
		offsets: make([]uint32, h.PartCount),
	}
	r := bitstream.NewReader(c.data)
	if err := r.SeekBit(HeaderSize * 8); err != nil {
		return nil, err
	}
	for i := range c.offsets {
		off, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		c.offsets[i] = off
	}
	for i := range c.offsets {
		if _, err := c.part(i); err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
	}
	return c, nil
}

// Header returns the parsed container header.
func (c *Container) Header() Header {
	return c.header
}

// PartCount returns the number of parts in the container.
func (c *Container) PartCount() int {
	return len(c.offsets)
}

// part resolves and bounds-checks the i-th part.
func (c *Container) part(i int) (PartInfo, error) {
	if i < 0 || i >= len(c.offsets) {
		return PartInfo{}, fmt.Errorf("%w: %d of %d", ErrPartOutOfRange, i, len(c.offsets))
	}
	off := uint64(c.offsets[i])
	if off+PartHeaderSize > uint64(len(c.data)) {
		return PartInfo{}, fmt.Errorf("%w: header at offset %d", ErrPartBounds, off)
	}
	r := bitstream.NewReader(c.data)
	if err := r.SeekBit(off * 8); err != nil {
		return PartInfo{}, err
	}
	tag, err := r.ReadUint32()
	if err != nil {
		return PartInfo{}, err
	}
	size, err := r.ReadUint32()
	if err != nil {
		return PartInfo{}, err
	}
	if off+PartHeaderSize+uint64(size) > uint64(len(c.data)) {
		return PartInfo{}, fmt.Errorf("%w: %d data bytes at offset %d", ErrPartBounds, size, off)
	}
	return PartInfo{Kind: FourCC(tag), Offset: c.offsets[i], Size: size}, nil
}

// PartKind returns the tag of the i-th part.
func (c *Container) PartKind(i int) (FourCC, error) {
	p, err := c.part(i)
	if err != nil {
		return 0, err
	}
	return p.Kind, nil
}

// PartContent returns the data of the i-th part, tag and size prefix
// excluded. The slice aliases the container buffer and must not be modified.
func (c *Container) PartContent(i int) ([]byte, error) {
	p, err := c.part(i)
	if err != nil {
		return nil, err
	}
	start := uint64(p.Offset) + PartHeaderSize
	return c.data[start : start+uint64(p.Size)], nil
}

// Parts returns descriptions of every part in container order.
func (c *Container) Parts() []PartInfo {
	parts := make([]PartInfo, 0, len(c.offsets))
	for i := range c.offsets {
		p, err := c.part(i)
		if err != nil {
			continue // bounds were validated in Load
		}
		parts = append(parts, p)
	}
	return parts
}

// FindFirstPart returns the index of the first part with the given tag.
func (c *Container) FindFirstPart(tag FourCC) (int, error) {
	for i := range c.offsets {
		p, err := c.part(i)
		if err != nil {
			return 0, err
		}
		if p.Kind == tag {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrPartNotFound, tag)
}

// ProgramHeader parses the program header of the i-th part. The part must
// be a program kind (DXIL, ILDB or STAT).
func (c *Container) ProgramHeader(i int) (*ProgramHeader, error) {
	p, err := c.part(i)
	if err != nil {
		return nil, err
	}
	if KindOf(p.Kind) != PartKindProgram {
		return nil, fmt.Errorf("%w: %s is not a program part", ErrPartKind, p.Kind)
	}
	body, err := c.PartContent(i)
	if err != nil {
		return nil, err
	}
	return ParseProgramHeader(body)
}

// Signature parses the signature table of the i-th part. The part must be
// one of the signature kinds.
func (c *Container) Signature(i int) (*Signature, error) {
	p, err := c.part(i)
	if err != nil {
		return nil, err
	}
	if KindOf(p.Kind) != PartKindSignature {
		return nil, fmt.Errorf("%w: %s is not a signature part", ErrPartKind, p.Kind)
	}
	body, err := c.PartContent(i)
	if err != nil {
		return nil, err
	}
	return ParseSignature(p.Kind, body)
}
