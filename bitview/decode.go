package bitview

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/dxbc/bitstream"
	"github.com/gogpu/dxbc/container"
)

// bitcodeMagic is the LLVM bitstream signature 'B', 'C', 0xC0, 0xDE read
// as a little-endian uint32.
const bitcodeMagic = 0x42 | 0x43<<8 | 0xC0<<16 | 0xDE<<24

// enterSubblock is the builtin abbreviation id opening a bitstream block.
const enterSubblock = 1

// errBitcodeStream marks the boundary of structural decoding: the embedded
// LLVM bitstream is located and probed, not decoded.
var errBitcodeStream = errors.New("bitcode stream decoding is not implemented")

// Decode parses a shader container blob into an aggregated range tree.
//
// Decode never fails: buffers that do not carry the container magic come
// back as a single opaque leaf, and structural problems inside a container
// degrade to annotated partial subtrees. The returned tree is aggregated,
// so every node carries a range and is ready for At and Path queries.
func Decode(data []byte) *Node {
	if len(data) < 4 || container.FourCC(binary.LittleEndian.Uint32(data)) != container.Magic {
		return Leaf("Content: Unknown", 0, uint64(len(data))*8)
	}

	root := NewNode("Container: DXBC")
	d := &decoder{r: bitstream.NewReader(data), data: data}
	d.container(root)
	Aggregate(root)
	return root
}

// decoder carries the cursor and the raw buffer for indirect lookups.
type decoder struct {
	r    *bitstream.Reader
	data []byte
}

// step runs one sub-decode and confines its failure to the given node.
// Siblings of n continue decoding regardless of the outcome.
func step(n *Node, f func() error) {
	if err := f(); err != nil {
		n.Annotate(err)
	}
}

// closeGroup gives an empty grouping node a zero-length range at the given
// bit position so aggregation has something to work with.
func (d *decoder) closeGroup(n *Node, at uint64) {
	if len(n.Children) == 0 && n.Range == nil {
		if max := d.r.BitLen(); at > max {
			at = max
		}
		n.Range = &BitRange{Start: at, Length: 0}
	}
}

func (d *decoder) container(root *Node) {
	header := root.AddChild(NewNode("Header"))
	var partCount uint32
	step(header, func() error {
		var err error
		partCount, err = d.header(header)
		return err
	})

	tableStart := d.r.Offset()
	offsets := root.AddChild(NewNode("Part Offsets"))
	var entries []uint32
	step(offsets, func() error {
		var err error
		entries, err = d.offsetTable(offsets, partCount)
		return err
	})
	d.closeGroup(offsets, tableStart)

	partsStart := d.r.Offset()
	parts := root.AddChild(NewNode("Parts"))
	for i, off := range entries {
		d.part(parts, i, off)
	}
	d.closeGroup(parts, partsStart)

	// Bytes past the last decoded part still belong to the buffer; give
	// them a leaf so the root range spans every bit handed to Decode.
	if covered, total := subtreeEnd(root), d.r.BitLen(); covered < total {
		root.AddChild(Leaf(spanLabel("Trailing", total-covered), covered, total-covered))
	}
}

// header decodes the fixed container header and returns the part count.
func (d *decoder) header(n *Node) (uint32, error) {
	if _, err := d.leafTag(n, "Signature"); err != nil {
		return 0, err
	}
	if _, err := d.leafHexBytes(n, "Hash", container.HashSize); err != nil {
		return 0, err
	}
	if _, err := d.leafUint16(n, "VerMajor"); err != nil {
		return 0, err
	}
	if _, err := d.leafUint16(n, "VerMinor"); err != nil {
		return 0, err
	}
	if _, err := d.leafUint32(n, "ContainerSize"); err != nil {
		return 0, err
	}
	return d.leafUint32(n, "PartCount")
}

// offsetTable decodes the part offset entries. A count that cannot fit in
// the remaining buffer is clamped to what fits, so a hostile header cannot
// force proportional work.
func (d *decoder) offsetTable(n *Node, count uint32) ([]uint32, error) {
	limit := d.r.Remaining() / 32
	clamped := count
	var clampErr error
	if uint64(count) > limit {
		clamped = uint32(limit)
		clampErr = fmt.Errorf("part count %d exceeds remaining space, reading %d entries", count, clamped)
	}

	entries := make([]uint32, 0, clamped)
	for i := uint32(0); i < clamped; i++ {
		v, err := d.leafUint32(n, fmt.Sprintf("Part %d Offset", i))
		if err != nil {
			return entries, err
		}
		entries = append(entries, v)
	}
	return entries, clampErr
}

// part decodes one part at its absolute byte offset.
func (d *decoder) part(parent *Node, index int, offset uint32) {
	n := parent.AddChild(NewNode(fmt.Sprintf("Part %d", index)))
	start := uint64(offset) * 8
	var bodyBits uint64
	bodyKnown := false
	var bodyErr error
	step(n, func() error {
		if err := d.r.SeekBit(start); err != nil {
			return err
		}
		tag, err := d.leafTag(n, "FourCC")
		if err != nil {
			return err
		}
		n.Label = fmt.Sprintf("Part %d: %s", index, tag)
		size, err := d.leafUint32(n, "PartSize")
		if err != nil {
			return err
		}
		bodyBits = uint64(size) * 8
		bodyKnown = true
		bodyErr = d.partBody(n, tag)
		return bodyErr
	})
	if bodyKnown {
		d.coverBody(n, start+8*container.PartHeaderSize, bodyBits, bodyErr == nil)
	}
	d.closeGroup(n, start)
}

// partBody dispatches on the tag's decode strategy. The cursor sits at the
// first byte of the part data. Opaque and unrecognized bodies stay
// undecoded here; the caller covers them with a data leaf.
func (d *decoder) partBody(n *Node, tag container.FourCC) error {
	switch container.KindOf(tag) {
	case container.PartKindProgram:
		return d.programPart(n)
	case container.PartKindSignature:
		return d.signaturePart(n, tag)
	case container.PartKindFeatureInfo:
		return d.featurePart(n)
	case container.PartKindDebugName:
		return d.debugNamePart(n)
	default:
		return nil
	}
}

// coverBody appends a leaf over whatever span of the declared part body
// the sub-decode left unclaimed. Opaque bodies, string terminators and
// alignment tails all end up with an owning leaf, so part ranges reach
// the part's declared end and hit tests resolve every body bit.
func (d *decoder) coverBody(n *Node, bodyStart, bodyBits uint64, decoded bool) {
	end := bodyStart + bodyBits
	if max := d.r.BitLen(); end > max {
		end = max
	}
	covered := bodyStart
	for _, c := range n.Children {
		if e := subtreeEnd(c); e > covered {
			covered = e
		}
	}
	if covered >= end {
		return
	}
	name := "Data"
	if decoded && covered > bodyStart {
		name = "Padding"
	}
	n.AddChild(Leaf(spanLabel(name, end-covered), covered, end-covered))
}

// subtreeEnd returns the highest bit end assigned anywhere in the
// subtree, or zero when no node in it carries a range yet.
func subtreeEnd(n *Node) uint64 {
	var end uint64
	if n.Range != nil {
		end = n.Range.End()
	}
	for _, c := range n.Children {
		if e := subtreeEnd(c); e > end {
			end = e
		}
	}
	return end
}

// spanLabel formats the size of an undecoded span, in bytes when whole.
func spanLabel(name string, bits uint64) string {
	switch {
	case bits%8 != 0:
		return fmt.Sprintf("%s: %d bits", name, bits)
	case bits == 8:
		return name + ": 1 byte"
	default:
		return fmt.Sprintf("%s: %d bytes", name, bits/8)
	}
}

// programPart decodes a program header and probes the bitcode it frames.
func (d *decoder) programPart(n *Node) error {
	ver, err := d.r.ReadUint32()
	if err != nil {
		return err
	}
	n.AddChild(Leaf(fmt.Sprintf("ProgramVersion: %s", container.ProgramVersion(ver)), d.r.Offset()-32, 32))

	if _, err := d.leafUint32(n, "SizeInUint32"); err != nil {
		return err
	}

	subHeader := d.r.Offset() / 8 // bitcode placement is relative to here
	magic, err := d.leafTag(n, "Magic")
	if err != nil {
		return err
	}
	if magic != container.DxilMagic {
		return fmt.Errorf("expected DXIL magic, found %s", magic)
	}
	if _, err := d.leafHex32(n, "DxilVersion"); err != nil {
		return err
	}
	bcOffset, err := d.leafUint32(n, "BitcodeOffset")
	if err != nil {
		return err
	}
	bcSize, err := d.leafUint32(n, "BitcodeSize")
	if err != nil {
		return err
	}

	start := (uint64(subHeader) + uint64(bcOffset)) * 8
	if start > d.r.BitLen() {
		return fmt.Errorf("bitcode at byte %d lies outside the buffer", subHeader+uint64(bcOffset))
	}
	length := uint64(bcSize) * 8
	bc := n.AddChild(NewNode("Bitcode"))
	if rest := d.r.BitLen() - start; length > rest {
		bc.Annotate(fmt.Errorf("bitcode of %d bits truncated to %d by the buffer", length, rest))
		length = rest
	}
	d.bitcode(bc, start, length)
	return nil
}

// bitcode probes the head of an LLVM bitstream: the magic, the first
// abbreviation, and the opening block's shape. The stream itself stays
// undecoded; a trailing leaf accounts for the unread span.
func (d *decoder) bitcode(n *Node, start, length uint64) {
	end := start + length
	probeErr := d.probeBitcode(n, start, end)
	if probeErr != nil {
		n.Annotate(probeErr)
	} else {
		n.Annotate(errBitcodeStream)
	}

	if cur := d.r.Offset(); cur < end {
		n.AddChild(Leaf(fmt.Sprintf("Remaining: %d bits", end-cur), cur, end-cur))
	}
	if len(n.Children) == 0 {
		n.Range = &BitRange{Start: start, Length: length}
	}
}

func (d *decoder) probeBitcode(n *Node, start, end uint64) error {
	if err := d.r.SeekBit(start); err != nil {
		return err
	}
	if start+32 > end {
		return errors.New("bitcode shorter than the stream magic")
	}
	magic, err := d.r.ReadBits(32)
	if err != nil {
		return err
	}
	if magic != bitcodeMagic {
		return fmt.Errorf("no 'BC' 0xC0DE magic, found 0x%08X", magic)
	}
	n.AddChild(Leaf("Magic: 'BC' 0xC0DE", start, 32))

	// The top-level abbreviation id width is two bits.
	at := d.r.Offset()
	if at+2 > end {
		return nil
	}
	abbrev, err := d.r.ReadBits(2)
	if err != nil {
		return err
	}
	if abbrev != enterSubblock {
		n.AddChild(Leaf(fmt.Sprintf("AbbrevID: %d", abbrev), at, 2))
		return nil
	}
	n.AddChild(Leaf("AbbrevID: 1 (ENTER_SUBBLOCK)", at, 2))

	at = d.r.Offset()
	if at+8 > end {
		return nil
	}
	blockID, err := d.r.ReadVBR(8)
	if err != nil {
		return err
	}
	n.AddChild(Leaf(fmt.Sprintf("BlockID: %d%s", blockID, blockName(blockID)), at, 8))

	at = d.r.Offset()
	if at+4 > end {
		return nil
	}
	width, err := d.r.ReadVBR(4)
	if err != nil {
		return err
	}
	n.AddChild(Leaf(fmt.Sprintf("AbbrevWidth: %d", width), at, 4))

	// Blocks align their word-sized length prefix to the stream, not the
	// enclosing buffer.
	at = d.r.Offset()
	if pad := (32 - (at-start)%32) % 32; pad > 0 {
		if at+pad > end {
			return nil
		}
		if err := d.r.SkipBits(pad); err != nil {
			return err
		}
		n.AddChild(Leaf(fmt.Sprintf("Align: %d bits", pad), at, pad))
	}

	at = d.r.Offset()
	if at+32 > end {
		return nil
	}
	words, err := d.r.ReadBits(32)
	if err != nil {
		return err
	}
	n.AddChild(Leaf(fmt.Sprintf("BlockLength: %d words", words), at, 32))
	return nil
}

// blockName returns a display suffix for well-known bitstream block ids.
func blockName(id uint32) string {
	switch id {
	case 8:
		return " (MODULE_BLOCK)"
	case 13:
		return " (IDENTIFICATION_BLOCK)"
	case 15:
		return " (METADATA_BLOCK)"
	case 17:
		return " (TYPE_BLOCK)"
	default:
		return ""
	}
}

// signaturePart decodes a signature parameter table and the semantic names
// its records point at.
func (d *decoder) signaturePart(n *Node, tag container.FourCC) error {
	layout, ok := container.LayoutOf(tag)
	if !ok {
		return fmt.Errorf("%s has no signature layout", tag)
	}
	bodyByte := d.r.Offset() / 8

	count, err := d.leafUint32(n, "ParamCount")
	if err != nil {
		return err
	}
	tableOff, err := d.leafUint32(n, "ParamOffset")
	if err != nil {
		return err
	}
	if tableOff != 8 {
		return fmt.Errorf("parameter table at offset %d is not implemented", tableOff)
	}

	recordBits := uint64(layout.RecordSize()) * 8
	tableStart := d.r.Offset()
	var clampErr error
	if limit := d.r.Remaining() / recordBits; uint64(count) > limit {
		clampErr = fmt.Errorf("parameter count %d exceeds remaining space, reading %d", count, limit)
		count = uint32(limit)
	}

	for i := uint32(0); i < count; i++ {
		recStart := tableStart + uint64(i)*recordBits
		param := n.AddChild(NewNode(fmt.Sprintf("Param %d", i)))
		step(param, func() error {
			if err := d.r.SeekBit(recStart); err != nil {
				return err
			}
			return d.signatureParam(param, i, layout, bodyByte)
		})
		d.closeGroup(param, recStart)
	}
	return clampErr
}

// signatureParam decodes one record. The semantic name leaf points into
// the name table, outside the record, so sibling params overlap there.
func (d *decoder) signatureParam(n *Node, index uint32, layout container.SignatureLayout, bodyByte uint64) error {
	if layout.HasStream {
		if _, err := d.leafUint32(n, "Stream"); err != nil {
			return err
		}
	}
	nameOff, err := d.leafUint32(n, "SemanticNameOffset")
	if err != nil {
		return err
	}
	name, nameStart, err := d.semanticName(bodyByte + uint64(nameOff))
	if err != nil {
		return err
	}
	n.AddChild(Leaf(fmt.Sprintf("SemanticName: %s", printable(name)), nameStart, (uint64(len(name))+1)*8))
	n.Label = fmt.Sprintf("Param %d: %s", index, printable(name))

	if _, err := d.leafUint32(n, "SemanticIndex"); err != nil {
		return err
	}
	sv, err := d.r.ReadUint32()
	if err != nil {
		return err
	}
	n.AddChild(Leaf(fmt.Sprintf("SystemValue: %s", container.SystemValue(sv)), d.r.Offset()-32, 32))
	ct, err := d.r.ReadUint32()
	if err != nil {
		return err
	}
	n.AddChild(Leaf(fmt.Sprintf("ComponentType: %s", container.ComponentType(ct)), d.r.Offset()-32, 32))
	if _, err := d.leafUint32(n, "Register"); err != nil {
		return err
	}
	if _, err := d.leafHex8(n, "Mask"); err != nil {
		return err
	}
	if _, err := d.leafHex8(n, "ReadWriteMask"); err != nil {
		return err
	}
	if _, err := d.leafUint16(n, "Pad"); err != nil {
		return err
	}
	if layout.HasMinPrecision {
		mp, err := d.r.ReadUint32()
		if err != nil {
			return err
		}
		n.AddChild(Leaf(fmt.Sprintf("MinPrecision: %s", container.MinPrecision(mp)), d.r.Offset()-32, 32))
	}
	return nil
}

// semanticName resolves a null-terminated name at an absolute byte offset,
// returning the name and the bit offset of its first byte.
func (d *decoder) semanticName(byteOff uint64) (string, uint64, error) {
	if byteOff >= uint64(len(d.data)) {
		return "", 0, fmt.Errorf("semantic name at byte %d lies outside the buffer", byteOff)
	}
	for end := byteOff; end < uint64(len(d.data)); end++ {
		if d.data[end] == 0 {
			return string(d.data[byteOff:end]), byteOff * 8, nil
		}
	}
	return "", 0, fmt.Errorf("semantic name at byte %d is not null-terminated", byteOff)
}

// featurePart decodes the SFI0 flag word.
func (d *decoder) featurePart(n *Node) error {
	start := d.r.Offset()
	lo, err := d.r.ReadUint32()
	if err != nil {
		return err
	}
	hi, err := d.r.ReadUint32()
	if err != nil {
		return err
	}
	flags := container.FeatureFlags(uint64(hi)<<32 | uint64(lo))
	n.AddChild(Leaf(fmt.Sprintf("FeatureFlags: %s", flags), start, 64))
	return nil
}

// debugNamePart decodes the ILDN payload.
func (d *decoder) debugNamePart(n *Node) error {
	if _, err := d.leafUint16(n, "Flags"); err != nil {
		return err
	}
	nameLen, err := d.leafUint16(n, "NameLength")
	if err != nil {
		return err
	}
	start := d.r.Offset()
	name, err := d.r.ReadASCII(int(nameLen))
	if err != nil {
		return err
	}
	n.AddChild(Leaf(fmt.Sprintf("Name: %s", printable(name)), start, uint64(nameLen)*8))
	return nil
}

// Leaf read helpers. Each consumes one field at the cursor and records it
// with its exact range; on failure nothing is recorded or consumed.

func (d *decoder) leafHex8(n *Node, name string) (uint8, error) {
	start := d.r.Offset()
	v, err := d.r.ReadUint8()
	if err != nil {
		return 0, err
	}
	n.AddChild(Leaf(fmt.Sprintf("%s: 0x%X", name, v), start, 8))
	return v, nil
}

func (d *decoder) leafUint16(n *Node, name string) (uint16, error) {
	start := d.r.Offset()
	v, err := d.r.ReadUint16()
	if err != nil {
		return 0, err
	}
	n.AddChild(Leaf(fmt.Sprintf("%s: %d", name, v), start, 16))
	return v, nil
}

func (d *decoder) leafUint32(n *Node, name string) (uint32, error) {
	start := d.r.Offset()
	v, err := d.r.ReadUint32()
	if err != nil {
		return 0, err
	}
	n.AddChild(Leaf(fmt.Sprintf("%s: %d", name, v), start, 32))
	return v, nil
}

func (d *decoder) leafHex32(n *Node, name string) (uint32, error) {
	start := d.r.Offset()
	v, err := d.r.ReadUint32()
	if err != nil {
		return 0, err
	}
	n.AddChild(Leaf(fmt.Sprintf("%s: 0x%X", name, v), start, 32))
	return v, nil
}

// leafTag reads a four-character code and records it in escaped form,
// with a description suffix for recognized tags.
func (d *decoder) leafTag(n *Node, name string) (container.FourCC, error) {
	start := d.r.Offset()
	v, err := d.r.ReadUint32()
	if err != nil {
		return 0, err
	}
	tag := container.FourCC(v)
	label := fmt.Sprintf("%s: %s", name, tag)
	if desc := container.Description(tag); desc != "" {
		label += " (" + desc + ")"
	}
	n.AddChild(Leaf(label, start, 32))
	return tag, nil
}

// leafHexBytes reads n bytes and records them as a hex string.
func (d *decoder) leafHexBytes(n *Node, name string, count int) ([]byte, error) {
	start := d.r.Offset()
	b, err := d.r.ReadBytes(count)
	if err != nil {
		return nil, err
	}
	n.AddChild(Leaf(fmt.Sprintf("%s: %x", name, b), start, uint64(count)*8))
	return b, nil
}

// printable escapes non-printable bytes so hostile strings stay displayable.
func printable(s string) string {
	clean := true
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] >= 0x7F {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	buf := make([]byte, 0, len(s)+8)
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x20 && s[i] < 0x7F {
			buf = append(buf, s[i])
		} else {
			buf = append(buf, fmt.Sprintf("\\x%02X", s[i])...)
		}
	}
	return string(buf)
}
