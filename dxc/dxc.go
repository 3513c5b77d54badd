// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package dxc

import "context"

// Source is one HLSL compilation input.
type Source struct {
	// Name is the file name reported in diagnostics. It does not have
	// to exist on disk; Compile writes Text to a scratch file.
	Name string

	// Text is the HLSL source text.
	Text string

	// EntryPoint is the entry function name. Defaults to "main".
	// Ignored for library profiles, which compile all exports.
	EntryPoint string

	// Profile is the target profile, e.g. "ps_6_0" or "cs_6_5".
	Profile string

	// Defines are preprocessor definitions applied before compilation.
	Defines []Define

	// Args are extra compiler arguments passed through verbatim.
	Args []string
}

// Define is one preprocessor definition.
type Define struct {
	Name  string
	Value string // empty defines the name without a value
}

// Result is the outcome of a toolchain operation. Failed operations
// return their diagnostics in Messages next to a non-nil error.
type Result struct {
	// Object is the output blob. Nil when the operation failed.
	Object []byte

	// Messages is the tool's diagnostic output, warnings included.
	Messages string
}

// ValidatorFlags control container validation.
type ValidatorFlags uint32

const (
	// ValidatorDefault validates without modifying the blob.
	ValidatorDefault ValidatorFlags = 0

	// ValidatorInPlaceEdit lets the validator patch the blob in place,
	// for example to fill in the container hash.
	ValidatorInPlaceEdit ValidatorFlags = 1
)

// VersionFlags describe how a toolchain component was built.
type VersionFlags uint32

const (
	VersionNone  VersionFlags = 0
	VersionDebug VersionFlags = 1
)

// VersionInfo identifies a toolchain component version.
type VersionInfo struct {
	Major uint32
	Minor uint32
	Flags VersionFlags
}

// PassInfo describes one optimizer pass.
type PassInfo struct {
	// Name is the pass option name, e.g. "-simplifycfg".
	Name string

	// Description is the human-readable pass summary.
	Description string
}

// OptimizeResult is the outcome of an optimizer run.
type OptimizeResult struct {
	// Module is the transformed module blob.
	Module []byte

	// Text is the tool's textual output, if any.
	Text string
}

// Compiler compiles HLSL source into a shader container.
type Compiler interface {
	Compile(ctx context.Context, src Source) (Result, error)
}

// Preprocessor expands includes and macros without compiling. The
// result object is the preprocessed HLSL text rather than a container.
type Preprocessor interface {
	Preprocess(ctx context.Context, src Source) (Result, error)
}

// Disassembler renders a compiled blob as assembly text.
type Disassembler interface {
	Disassemble(ctx context.Context, blob []byte) (string, error)
}

// Validator checks a container for well-formedness.
type Validator interface {
	Validate(ctx context.Context, blob []byte, flags ValidatorFlags) (Result, error)
}

// Assembler wraps LLVM bitcode into a shader container.
type Assembler interface {
	AssembleToContainer(ctx context.Context, module []byte) (Result, error)
}

// Optimizer exposes the toolchain's optimizer passes.
type Optimizer interface {
	// Passes lists the available optimizer passes.
	Passes(ctx context.Context) ([]PassInfo, error)

	// RunOptimizer applies the given pass options to a module blob.
	RunOptimizer(ctx context.Context, blob []byte, options []string) (OptimizeResult, error)
}
