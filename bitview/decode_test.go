package bitview

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/dxbc/container"
)

// testBitcode is the head of a plausible LLVM bitstream: the 'BC' 0xC0DE
// magic, ENTER_SUBBLOCK, block id 8, abbrev width 4, alignment padding,
// a two word block length and one trailing word.
var testBitcode = []byte{
	'B', 'C', 0xC0, 0xDE,
	0x21, 0x10, 0x00, 0x00,
	0x02, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

func buildProgramContainer(t *testing.T, version container.ProgramVersion) []byte {
	t.Helper()
	b := container.NewContainerBuilder()
	b.AddPart(container.TagDXIL, container.ProgramPartBody(version, 0x101, testBitcode))
	blob, err := b.Build()
	require.NoError(t, err)
	return blob
}

// requireExactAggregation checks that every grouping node's range is the
// exact min-start, max-end cover of its children.
func requireExactAggregation(t *testing.T, root *Node) {
	t.Helper()
	root.Walk(func(n *Node, _ int) bool {
		require.NotNil(t, n.Range, "node %q has no range after aggregation", n.Label)
		if len(n.Children) == 0 {
			return true
		}
		start := n.Children[0].Range.Start
		end := n.Children[0].Range.End()
		for _, c := range n.Children[1:] {
			if c.Range.Start < start {
				start = c.Range.Start
			}
			if e := c.Range.End(); e > end {
				end = e
			}
		}
		require.Equal(t, start, n.Range.Start, "node %q start", n.Label)
		require.Equal(t, end, n.Range.End(), "node %q end", n.Label)
		return true
	})
}

func TestDecodeEmptyContainer(t *testing.T) {
	blob, err := container.NewContainerBuilder().Build()
	require.NoError(t, err)
	require.Len(t, blob, 32)

	root := Decode(blob)
	require.Len(t, root.Children, 3)

	header := root.Children[0]
	assert.Equal(t, "Header", header.Label)
	require.Len(t, header.Children, 6)
	assert.Equal(t, "Signature: DXBC", header.Children[0].Label)
	assert.True(t, strings.HasPrefix(header.Children[1].Label, "Hash:"))
	assert.Equal(t, "VerMajor: 1", header.Children[2].Label)
	assert.Equal(t, "VerMinor: 0", header.Children[3].Label)
	assert.Equal(t, "ContainerSize: 32", header.Children[4].Label)
	assert.Equal(t, "PartCount: 0", header.Children[5].Label)

	offsets := root.Children[1]
	assert.Equal(t, "Part Offsets", offsets.Label)
	assert.Empty(t, offsets.Children)
	parts := root.Children[2]
	assert.Equal(t, "Parts", parts.Label)
	assert.Empty(t, parts.Children)

	// The aggregated root spans the whole 32 bytes.
	require.NotNil(t, root.Range)
	assert.Equal(t, BitRange{Start: 0, Length: 256}, *root.Range)

	// Offset 100 falls inside the hash bytes.
	hit := At(root, 100)
	require.NotNil(t, hit)
	assert.True(t, strings.HasPrefix(hit.Label, "Hash:"), "hit %q", hit.Label)

	requireExactAggregation(t, root)
}

func TestDecodeUnknownContent(t *testing.T) {
	blob := []byte("ELF not a shader")

	root := Decode(blob)
	assert.Equal(t, "Content: Unknown", root.Label)
	assert.Empty(t, root.Children)
	require.NotNil(t, root.Range)
	assert.Equal(t, BitRange{Start: 0, Length: uint64(len(blob)) * 8}, *root.Range)

	// Magic-sized but all zero: still unknown, covering exactly 32 bits.
	zero := Decode([]byte{0, 0, 0, 0})
	assert.Equal(t, "Content: Unknown", zero.Label)
	require.NotNil(t, zero.Range)
	assert.Equal(t, BitRange{Start: 0, Length: 32}, *zero.Range)

	assert.Nil(t, Decode(nil).Children)
	assert.Equal(t, "Content: Unknown", Decode(nil).Label)
}

func TestDecodeProgramVersionLabel(t *testing.T) {
	root := Decode(buildProgramContainer(t, container.ProgramVersion(0x00050042)))

	ver := root.Find(func(n *Node) bool {
		return strings.HasPrefix(n.Label, "ProgramVersion:")
	})
	require.NotNil(t, ver)
	assert.Equal(t, "ProgramVersion: Compute 4.2", ver.Label)
	require.NotNil(t, ver.Range)
	assert.Equal(t, uint64(32), ver.Range.Length)

	requireExactAggregation(t, root)
}

func TestDecodeBitcodeProbe(t *testing.T) {
	root := Decode(buildProgramContainer(t, container.MakeProgramVersion(container.ShaderKindCompute, 6, 0)))

	bc := root.Find(func(n *Node) bool {
		return strings.HasPrefix(n.Label, "Bitcode")
	})
	require.NotNil(t, bc)
	assert.Contains(t, bc.Label, "bitcode stream decoding is not implemented")

	labels := make([]string, 0, len(bc.Children))
	for _, c := range bc.Children {
		labels = append(labels, c.Label)
	}
	require.Len(t, labels, 7, "probe leaves: %v", labels)
	assert.Equal(t, "Magic: 'BC' 0xC0DE", labels[0])
	assert.Equal(t, "AbbrevID: 1 (ENTER_SUBBLOCK)", labels[1])
	assert.Equal(t, "BlockID: 8 (MODULE_BLOCK)", labels[2])
	assert.Equal(t, "AbbrevWidth: 4", labels[3])
	assert.Equal(t, "Align: 18 bits", labels[4])
	assert.Equal(t, "BlockLength: 2 words", labels[5])
	assert.Equal(t, "Remaining: 32 bits", labels[6])

	// The probe leaves tile the bitcode span exactly.
	require.NotNil(t, bc.Range)
	assert.Equal(t, uint64(len(testBitcode))*8, bc.Range.Length)
}

func TestDecodeBitcodeVBRContinuation(t *testing.T) {
	// Block id chunk with the continuation flag set.
	bitcode := []byte{'B', 'C', 0xC0, 0xDE, 0x05, 0x02, 0x00, 0x00}
	b := container.NewContainerBuilder()
	b.AddPart(container.TagDXIL, container.ProgramPartBody(
		container.MakeProgramVersion(container.ShaderKindLibrary, 6, 3), 0x101, bitcode))
	blob, err := b.Build()
	require.NoError(t, err)

	root := Decode(blob)
	bc := root.Find(func(n *Node) bool {
		return strings.HasPrefix(n.Label, "Bitcode")
	})
	require.NotNil(t, bc)
	assert.Contains(t, bc.Label, "continuation chunks are not implemented")

	// The magic and abbreviation leaves survive, the remainder covers the
	// unread span from the rejected chunk onward.
	require.NotEmpty(t, bc.Children)
	assert.Equal(t, "Magic: 'BC' 0xC0DE", bc.Children[0].Label)
	last := bc.Children[len(bc.Children)-1]
	assert.True(t, strings.HasPrefix(last.Label, "Remaining:"), "last %q", last.Label)

	requireExactAggregation(t, root)
}

func TestDecodeSignaturePart(t *testing.T) {
	params := []container.SignatureParam{
		{
			SemanticName:  "SV_Position",
			SystemValue:   container.SVPosition,
			ComponentType: container.CompFloat32,
			Register:      0,
			Mask:          0xF,
			ReadWriteMask: 0xF,
		},
		{
			SemanticName:  "COLOR",
			SemanticIndex: 0,
			ComponentType: container.CompFloat32,
			Register:      1,
			Mask:          0xF,
		},
		{
			SemanticName:  "COLOR",
			SemanticIndex: 1,
			ComponentType: container.CompFloat32,
			Register:      2,
			Mask:          0x3,
		},
	}
	body, err := container.SignaturePartBody(container.TagISG1, params)
	require.NoError(t, err)

	b := container.NewContainerBuilder()
	b.AddPart(container.TagISG1, body)
	blob, err := b.Build()
	require.NoError(t, err)

	root := Decode(blob)
	requireExactAggregation(t, root)

	part := root.Find(func(n *Node) bool {
		return strings.HasPrefix(n.Label, "Part 0: ISG1")
	})
	require.NotNil(t, part)

	assert.NotNil(t, part.Find(func(n *Node) bool { return n.Label == "ParamCount: 3" }))
	p0 := part.Find(func(n *Node) bool { return n.Label == "Param 0: SV_Position" })
	require.NotNil(t, p0)
	assert.NotNil(t, p0.Find(func(n *Node) bool { return n.Label == "SystemValue: Position" }))
	assert.NotNil(t, p0.Find(func(n *Node) bool { return n.Label == "ComponentType: Float32" }))
	assert.NotNil(t, p0.Find(func(n *Node) bool { return n.Label == "Stream: 0" }))
	assert.NotNil(t, p0.Find(func(n *Node) bool { return n.Label == "MinPrecision: Default" }))
	assert.NotNil(t, p0.Find(func(n *Node) bool { return n.Label == "Mask: 0xF" }))

	require.NotNil(t, part.Find(func(n *Node) bool { return n.Label == "Param 1: COLOR" }))
	require.NotNil(t, part.Find(func(n *Node) bool { return n.Label == "Param 2: COLOR" }))
}

func TestDecodeSignatureNameOverlapResolvesToFirstParam(t *testing.T) {
	// Two parameters share one deduplicated semantic name, so both name
	// leaves cover the same bytes and the parent records overlap.
	params := []container.SignatureParam{
		{SemanticName: "TEXCOORD", SemanticIndex: 0},
		{SemanticName: "TEXCOORD", SemanticIndex: 1},
	}
	body, err := container.SignaturePartBody(container.TagISGN, params)
	require.NoError(t, err)

	b := container.NewContainerBuilder()
	b.AddPart(container.TagISGN, body)
	blob, err := b.Build()
	require.NoError(t, err)

	root := Decode(blob)

	var nameLeaves []*Node
	root.Walk(func(n *Node, _ int) bool {
		if strings.HasPrefix(n.Label, "SemanticName: TEXCOORD") {
			nameLeaves = append(nameLeaves, n)
		}
		return true
	})
	require.Len(t, nameLeaves, 2)
	require.Equal(t, *nameLeaves[0].Range, *nameLeaves[1].Range)

	// Document order breaks the tie: the hit lands in Param 0's subtree.
	hit := At(root, nameLeaves[0].Range.Start)
	assert.Same(t, nameLeaves[0], hit)

	path := Path(root, nameLeaves[0].Range.Start)
	require.NotEmpty(t, path)
	var param *Node
	for _, n := range path {
		if strings.HasPrefix(n.Label, "Param ") {
			param = n
		}
	}
	require.NotNil(t, param)
	assert.True(t, strings.HasPrefix(param.Label, "Param 0:"), "path runs through %q", param.Label)
}

func TestDecodeFeatureFlagsPart(t *testing.T) {
	b := container.NewContainerBuilder()
	b.AddPart(container.TagSFI0, container.FeatureFlagsPartBody(
		container.FeatureDoubles|container.FeatureWaveOps))
	blob, err := b.Build()
	require.NoError(t, err)

	root := Decode(blob)
	flags := root.Find(func(n *Node) bool {
		return strings.HasPrefix(n.Label, "FeatureFlags:")
	})
	require.NotNil(t, flags)
	assert.Equal(t, "FeatureFlags: Doubles, WaveOps", flags.Label)
	assert.Equal(t, uint64(64), flags.Range.Length)
}

func TestDecodeDebugNamePart(t *testing.T) {
	b := container.NewContainerBuilder()
	b.AddPart(container.TagILDN, container.DebugNamePartBody("shader_4f2a.pdb"))
	blob, err := b.Build()
	require.NoError(t, err)

	root := Decode(blob)
	part := root.Find(func(n *Node) bool {
		return strings.HasPrefix(n.Label, "Part 0: ILDN")
	})
	require.NotNil(t, part)
	assert.NotNil(t, part.Find(func(n *Node) bool { return n.Label == "NameLength: 15" }))
	assert.NotNil(t, part.Find(func(n *Node) bool { return n.Label == "Name: shader_4f2a.pdb" }))

	// The terminator and alignment tail get a leaf of their own, so the
	// part covers its full declared size.
	assert.NotNil(t, part.Find(func(n *Node) bool { return n.Label == "Padding: 1 byte" }))
	assert.Equal(t, uint64(len(blob))*8, root.Range.End())
}

func TestDecodeOpaqueAndUnknownParts(t *testing.T) {
	b := container.NewContainerBuilder()
	b.AddPart(container.TagHASH, make([]byte, 20))
	b.AddPart(container.MakeFourCC('Z', 'Z', 'Z', 'Z'), []byte{1, 2, 3})
	blob, err := b.Build()
	require.NoError(t, err)

	root := Decode(blob)
	parts := root.Children[2]
	require.Len(t, parts.Children, 2)

	hash := parts.Children[0]
	assert.Equal(t, "Part 0: HASH", hash.Label)
	require.Len(t, hash.Children, 3)
	assert.Equal(t, "FourCC: HASH (shader hash)", hash.Children[0].Label)
	assert.Equal(t, "PartSize: 20", hash.Children[1].Label)
	assert.Equal(t, "Data: 20 bytes", hash.Children[2].Label)
	assert.Equal(t, uint64(160), hash.Children[2].Range.Length)

	unknown := parts.Children[1]
	assert.Equal(t, "Part 1: ZZZZ", unknown.Label)
	require.Len(t, unknown.Children, 3)
	assert.Equal(t, "FourCC: ZZZZ", unknown.Children[0].Label)
	assert.Equal(t, "Data: 3 bytes", unknown.Children[2].Label)

	// Undecoded bodies still count toward the cover, so the tree reaches
	// the end of the buffer.
	assert.Equal(t, uint64(len(blob))*8, root.Range.End())
	requireExactAggregation(t, root)
}

func TestDecodeCorruptPartOffset(t *testing.T) {
	blob := buildProgramContainer(t, container.MakeProgramVersion(container.ShaderKindPixel, 6, 0))
	bad := append([]byte(nil), blob...)
	// The single offset table entry sits right after the header.
	binary.LittleEndian.PutUint32(bad[32:], uint32(len(bad))+1000)

	root := Decode(bad)
	parts := root.Children[2]
	require.Len(t, parts.Children, 1)
	part := parts.Children[0]
	assert.Contains(t, part.Label, "error:")
	assert.Empty(t, part.Children)

	// The rest of the tree is intact and aggregation still covers it.
	requireExactAggregation(t, root)
	header := root.Children[0]
	assert.Len(t, header.Children, 6)
	assert.NotContains(t, header.Label, "error:")
}

func TestDecodeTruncatedHeader(t *testing.T) {
	blob, err := container.NewContainerBuilder().Build()
	require.NoError(t, err)

	// Signature and hash fit in 20 bytes, the version fields do not.
	root := Decode(blob[:20])
	header := root.Children[0]
	assert.Contains(t, header.Label, "error:")
	assert.Len(t, header.Children, 2)

	requireExactAggregation(t, root)
	assert.Equal(t, uint64(160), root.Range.End())
}

func TestDecodeHostilePartCountIsClamped(t *testing.T) {
	blob := buildProgramContainer(t, container.MakeProgramVersion(container.ShaderKindVertex, 6, 0))
	bad := append([]byte(nil), blob...)
	binary.LittleEndian.PutUint32(bad[28:], 0xFFFFFFFF)

	root := Decode(bad)
	offsets := root.Children[1]
	assert.Contains(t, offsets.Label, "exceeds remaining space")

	// Entries are bounded by the buffer, not the hostile count.
	maxEntries := (len(bad) - 32) / 4
	assert.Len(t, offsets.Children, maxEntries)

	requireExactAggregation(t, root)
}

func TestHitTestDeterminismSweep(t *testing.T) {
	buffers := map[string][]byte{
		"program": buildProgramContainer(t, container.MakeProgramVersion(container.ShaderKindCompute, 6, 6)),
	}
	empty, err := container.NewContainerBuilder().Build()
	require.NoError(t, err)
	buffers["empty"] = empty

	// Containers ending in bytes no sub-decoder claims: an opaque body and
	// a debug name whose terminator and alignment trail the last field.
	opaque := container.NewContainerBuilder()
	opaque.AddPart(container.TagPRIV, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01})
	buffers["opaque tail"], err = opaque.Build()
	require.NoError(t, err)

	named := container.NewContainerBuilder()
	named.AddPart(container.TagILDN, container.DebugNamePartBody("shader.pdb"))
	buffers["debug name tail"], err = named.Build()
	require.NoError(t, err)

	for name, blob := range buffers {
		root := Decode(blob)
		total := uint64(len(blob)) * 8
		require.NotNil(t, root.Range)
		require.Equal(t, total, root.Range.End(), "%s: tree must cover the buffer", name)

		for q := uint64(0); q < total; q++ {
			first := At(root, q)
			require.NotNil(t, first, "%s: no hit at bit %d", name, q)
			require.True(t, first.Range.Contains(q), "%s: node %q does not contain bit %d", name, first.Label, q)
			require.Same(t, first, At(root, q), "%s: unstable hit at bit %d", name, q)
		}
	}
}
