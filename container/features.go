// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package container

import (
	"fmt"

	"github.com/gogpu/dxbc/bitstream"
)

// FeatureFlags records the optional hardware capabilities a shader requires.
// The flags travel in the SFI0 part as a single uint64.
type FeatureFlags uint64

const (
	// FeatureDoubles requires double-precision float support.
	FeatureDoubles FeatureFlags = 0x0001

	// FeatureComputeShadersPlusRawAndStructuredBuffers requires raw and
	// structured buffer access from downlevel compute shaders.
	FeatureComputeShadersPlusRawAndStructuredBuffers FeatureFlags = 0x0002

	// FeatureUAVsAtEveryStage requires UAV binding outside pixel and
	// compute shaders.
	FeatureUAVsAtEveryStage FeatureFlags = 0x0004

	// Feature64UAVs requires the extended 64-slot UAV range.
	Feature64UAVs FeatureFlags = 0x0008

	// FeatureMinimumPrecision requires minimum-precision arithmetic.
	FeatureMinimumPrecision FeatureFlags = 0x0010

	// FeatureDoubleExtensions requires 11.1 double instruction extensions.
	FeatureDoubleExtensions FeatureFlags = 0x0020

	// FeatureShaderExtensions requires 11.1 shader instruction extensions.
	FeatureShaderExtensions FeatureFlags = 0x0040

	// FeatureLevel9ComparisonFiltering requires level 9 comparison filtering.
	FeatureLevel9ComparisonFiltering FeatureFlags = 0x0080

	// FeatureTiledResources requires tiled resource operations.
	FeatureTiledResources FeatureFlags = 0x0100

	// FeatureStencilRef requires the programmable stencil reference.
	FeatureStencilRef FeatureFlags = 0x0200

	// FeatureInnerCoverage requires conservative rasterization inner coverage.
	FeatureInnerCoverage FeatureFlags = 0x0400

	// FeatureTypedUAVLoadAdditionalFormats requires extended typed UAV loads.
	FeatureTypedUAVLoadAdditionalFormats FeatureFlags = 0x0800

	// FeatureROVs requires rasterizer-ordered views.
	FeatureROVs FeatureFlags = 0x1000

	// FeatureViewportAndRTArrayIndexFromAnyStage requires viewport and
	// render target selection from pre-rasterizer stages.
	FeatureViewportAndRTArrayIndexFromAnyStage FeatureFlags = 0x2000

	// FeatureWaveOps requires wave intrinsics.
	FeatureWaveOps FeatureFlags = 0x4000

	// FeatureInt64Ops requires 64-bit integer instructions.
	FeatureInt64Ops FeatureFlags = 0x8000

	// FeatureViewID requires the SV_ViewID input.
	FeatureViewID FeatureFlags = 0x10000

	// FeatureBarycentrics requires barycentric inputs.
	FeatureBarycentrics FeatureFlags = 0x20000

	// FeatureNativeLowPrecision requires true 16-bit arithmetic.
	FeatureNativeLowPrecision FeatureFlags = 0x40000

	// FeatureShadingRate requires variable rate shading.
	FeatureShadingRate FeatureFlags = 0x80000

	// FeatureRaytracingTier1_1 requires DXR 1.1 operations.
	FeatureRaytracingTier1_1 FeatureFlags = 0x100000

	// FeatureSamplerFeedback requires sampler feedback operations.
	FeatureSamplerFeedback FeatureFlags = 0x200000
)

// featureNames lists the flags in ascending bit order for display.
var featureNames = []struct {
	flag FeatureFlags
	name string
}{
	{FeatureDoubles, "Doubles"},
	{FeatureComputeShadersPlusRawAndStructuredBuffers, "ComputeShadersPlusRawAndStructuredBuffers"},
	{FeatureUAVsAtEveryStage, "UAVsAtEveryStage"},
	{Feature64UAVs, "64UAVs"},
	{FeatureMinimumPrecision, "MinimumPrecision"},
	{FeatureDoubleExtensions, "DoubleExtensions"},
	{FeatureShaderExtensions, "ShaderExtensions"},
	{FeatureLevel9ComparisonFiltering, "Level9ComparisonFiltering"},
	{FeatureTiledResources, "TiledResources"},
	{FeatureStencilRef, "StencilRef"},
	{FeatureInnerCoverage, "InnerCoverage"},
	{FeatureTypedUAVLoadAdditionalFormats, "TypedUAVLoadAdditionalFormats"},
	{FeatureROVs, "ROVs"},
	{FeatureViewportAndRTArrayIndexFromAnyStage, "ViewportAndRTArrayIndexFromAnyStage"},
	{FeatureWaveOps, "WaveOps"},
	{FeatureInt64Ops, "Int64Ops"},
	{FeatureViewID, "ViewID"},
	{FeatureBarycentrics, "Barycentrics"},
	{FeatureNativeLowPrecision, "NativeLowPrecision"},
	{FeatureShadingRate, "ShadingRate"},
	{FeatureRaytracingTier1_1, "RaytracingTier1_1"},
	{FeatureSamplerFeedback, "SamplerFeedback"},
}

// Has returns true if the flags contain the specified feature.
func (f FeatureFlags) Has(feature FeatureFlags) bool {
	return f&feature != 0
}

// String returns a human-readable list of the set flags. Bits without a
// known name are folded into a single hexadecimal remainder entry.
func (f FeatureFlags) String() string {
	if f == 0 {
		return "none"
	}

	var features []string
	rest := f
	for _, fn := range featureNames {
		if f.Has(fn.flag) {
			features = append(features, fn.name)
			rest &^= fn.flag
		}
	}
	if rest != 0 {
		features = append(features, fmt.Sprintf("0x%X", uint64(rest)))
	}

	result := features[0]
	for i := 1; i < len(features); i++ {
		result += ", " + features[i]
	}
	return result
}

// FeatureFlagsPartSize is the byte size of an SFI0 part's data.
const FeatureFlagsPartSize = 8

// ParseFeatureFlags reads the feature flags from an SFI0 part's data.
func ParseFeatureFlags(body []byte) (FeatureFlags, error) {
	if len(body) < FeatureFlagsPartSize {
		return 0, fmt.Errorf("%w: %d bytes, feature flags need %d",
			ErrTruncated, len(body), FeatureFlagsPartSize)
	}
	r := bitstream.NewReader(body)
	lo, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	hi, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return FeatureFlags(uint64(hi)<<32 | uint64(lo)), nil
}
