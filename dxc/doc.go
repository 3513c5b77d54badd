// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package dxc defines a narrow Go API for the DirectX Shader Compiler
// toolchain and a client that drives its command-line tools.
//
// The interfaces mirror the operations a shader pipeline needs from the
// toolchain: compile HLSL into a container, preprocess it, disassemble a
// blob, validate it, assemble LLVM bitcode into a container, and run
// optimizer passes. Each operation is its own single-method interface so
// callers depend only on what they use and tests can substitute fakes
// per operation.
//
// # Results and diagnostics
//
// Operations return a Result carrying the output blob and the tool's
// diagnostic text. Diagnostics are data, not part of the error chain: a
// failed compile returns its error messages in Result.Messages alongside
// a non-nil error, so callers can display them without parsing error
// strings.
//
// # ToolClient
//
// ToolClient implements every interface by running the external dxc,
// dxv, dxa and dxopt executables:
//
//	client := dxc.NewToolClient(dxc.Options{})
//	res, err := client.Compile(ctx, dxc.Source{
//	    Name:       "blit.hlsl",
//	    Text:       source,
//	    EntryPoint: "main",
//	    Profile:    "ps_6_0",
//	})
//
// The zero Options find the tools on PATH and log nothing; supply a
// zap logger to trace command lines and durations.
package dxc
