// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package container

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureLayouts(t *testing.T) {
	tests := []struct {
		tag        FourCC
		hasStream  bool
		hasMinPrec bool
		recordSize int
	}{
		{TagISGN, false, false, 24},
		{TagOSGN, false, false, 24},
		{TagPCSG, false, false, 24},
		{TagOSG5, true, false, 28},
		{TagISG1, true, true, 32},
		{TagOSG1, true, true, 32},
		{TagPSG1, true, true, 32},
	}

	for _, tt := range tests {
		layout, ok := LayoutOf(tt.tag)
		require.True(t, ok, "tag %s", tt.tag)
		assert.Equal(t, tt.hasStream, layout.HasStream, "tag %s", tt.tag)
		assert.Equal(t, tt.hasMinPrec, layout.HasMinPrecision, "tag %s", tt.tag)
		assert.Equal(t, tt.recordSize, layout.RecordSize(), "tag %s", tt.tag)
	}

	_, ok := LayoutOf(TagDXIL)
	assert.False(t, ok)
}

func TestSignatureRoundTrip(t *testing.T) {
	params := []SignatureParam{
		{
			SemanticName:  "SV_Position",
			SystemValue:   SVPosition,
			ComponentType: CompFloat32,
			Register:      0,
			Mask:          0xF,
			ReadWriteMask: 0xF,
		},
		{
			SemanticName:  "COLOR",
			SemanticIndex: 0,
			ComponentType: CompFloat32,
			Register:      1,
			Mask:          0xF,
			ReadWriteMask: 0x7,
		},
		{
			SemanticName:  "COLOR",
			SemanticIndex: 1,
			ComponentType: CompUInt32,
			Register:      2,
			Mask:          0x3,
			ReadWriteMask: 0x3,
		},
	}

	for _, tag := range []FourCC{TagISGN, TagOSG5, TagOSG1} {
		body, err := SignaturePartBody(tag, params)
		require.NoError(t, err)
		assert.Zero(t, len(body)%4, "tag %s: body must be word aligned", tag)

		sig, err := ParseSignature(tag, body)
		require.NoError(t, err, "tag %s", tag)
		require.Len(t, sig.Params, 3)
		assert.Equal(t, tag, sig.Kind)

		assert.Equal(t, "SV_Position", sig.Params[0].SemanticName)
		assert.Equal(t, SVPosition, sig.Params[0].SystemValue)
		assert.Equal(t, CompFloat32, sig.Params[0].ComponentType)
		assert.Equal(t, uint8(0xF), sig.Params[0].Mask)

		assert.Equal(t, "COLOR", sig.Params[1].SemanticName)
		assert.Equal(t, uint32(0), sig.Params[1].SemanticIndex)
		assert.Equal(t, "COLOR", sig.Params[2].SemanticName)
		assert.Equal(t, uint32(1), sig.Params[2].SemanticIndex)
		assert.Equal(t, uint8(0x3), sig.Params[2].ReadWriteMask)
	}
}

func TestSignatureNameDeduplication(t *testing.T) {
	params := []SignatureParam{
		{SemanticName: "TEXCOORD", SemanticIndex: 0},
		{SemanticName: "TEXCOORD", SemanticIndex: 1},
		{SemanticName: "TEXCOORD", SemanticIndex: 2},
	}
	body, err := SignaturePartBody(TagISGN, params)
	require.NoError(t, err)

	// Three records but a single copy of the name.
	layout, _ := LayoutOf(TagISGN)
	nameBytes := len(body) - paramTableOffset - 3*layout.RecordSize()
	require.Equal(t, 12, nameBytes, "TEXCOORD plus terminator, padded to 4")

	sig, err := ParseSignature(TagISGN, body)
	require.NoError(t, err)
	for i, p := range sig.Params {
		assert.Equal(t, "TEXCOORD", p.SemanticName)
		assert.Equal(t, uint32(i), p.SemanticIndex)
	}
}

func TestSignatureStreamAndPrecision(t *testing.T) {
	params := []SignatureParam{
		{
			Stream:        2,
			SemanticName:  "NORMAL",
			ComponentType: CompFloat16,
			Register:      3,
			Mask:          0x7,
			MinPrecision:  PrecisionFloat16,
		},
	}

	body, err := SignaturePartBody(TagOSG1, params)
	require.NoError(t, err)
	sig, err := ParseSignature(TagOSG1, body)
	require.NoError(t, err)
	require.Len(t, sig.Params, 1)
	assert.Equal(t, uint32(2), sig.Params[0].Stream)
	assert.Equal(t, PrecisionFloat16, sig.Params[0].MinPrecision)

	// The stream-only layout drops the precision field.
	body5, err := SignaturePartBody(TagOSG5, params)
	require.NoError(t, err)
	sig5, err := ParseSignature(TagOSG5, body5)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), sig5.Params[0].Stream)
	assert.Equal(t, PrecisionDefault, sig5.Params[0].MinPrecision)
	assert.Equal(t, len(body)-4, len(body5))
}

func TestParseSignatureRejectsBadInput(t *testing.T) {
	body, err := SignaturePartBody(TagISGN, []SignatureParam{{SemanticName: "A"}})
	require.NoError(t, err)

	t.Run("not a signature tag", func(t *testing.T) {
		_, err := ParseSignature(TagSFI0, body)
		require.ErrorIs(t, err, ErrPartKind)
	})

	t.Run("padded table layout", func(t *testing.T) {
		bad := append([]byte(nil), body...)
		binary.LittleEndian.PutUint32(bad[4:], 16)
		_, err := ParseSignature(TagISGN, bad)
		require.ErrorIs(t, err, ErrSignatureLayout)
	})

	t.Run("count overruns part", func(t *testing.T) {
		bad := append([]byte(nil), body...)
		binary.LittleEndian.PutUint32(bad, 1000)
		_, err := ParseSignature(TagISGN, bad)
		require.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("name offset out of bounds", func(t *testing.T) {
		bad := append([]byte(nil), body...)
		// The name offset is the first field of the ISGN record.
		binary.LittleEndian.PutUint32(bad[paramTableOffset:], 4096)
		_, err := ParseSignature(TagISGN, bad)
		require.ErrorIs(t, err, ErrPartBounds)
	})

	t.Run("unterminated name", func(t *testing.T) {
		bad, err := SignaturePartBody(TagISGN, []SignatureParam{{SemanticName: "LONGNAME"}})
		require.NoError(t, err)
		// Overwrite the terminator and padding with printable bytes.
		for i := len(bad) - 4; i < len(bad); i++ {
			bad[i] = 'X'
		}
		_, err = ParseSignature(TagISGN, bad)
		require.ErrorIs(t, err, ErrTruncated)
	})
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "Position", SVPosition.String())
	assert.Equal(t, "Target", SVTarget.String())
	assert.Equal(t, "Undefined", SVUndefined.String())
	assert.Contains(t, SystemValue(99).String(), "99")

	assert.Equal(t, "Float32", CompFloat32.String())
	assert.Equal(t, "UInt64", CompUInt64.String())
	assert.Contains(t, ComponentType(77).String(), "77")

	assert.Equal(t, "Default", PrecisionDefault.String())
	assert.Equal(t, "Any16", PrecisionAny16.String())
	assert.Contains(t, MinPrecision(9).String(), "9")
}
