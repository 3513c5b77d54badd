// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package dxc

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gogpu/dxbc/config"
)

// Options configure a ToolClient. The zero value finds the tools on
// PATH and logs nothing.
type Options struct {
	// Compiler is the dxc executable path. Defaults to "dxc".
	Compiler string

	// Validator is the dxv executable path. Defaults to "dxv".
	Validator string

	// Assembler is the dxa executable path. Defaults to "dxa".
	Assembler string

	// Optimizer is the dxopt executable path. Defaults to "dxopt".
	Optimizer string

	// ExtraArgs are appended to every compile invocation.
	ExtraArgs []string

	// Logger records command lines, durations and exit status at debug
	// level. Defaults to a no-op logger.
	Logger *zap.Logger
}

// ToolClient drives the toolchain's command-line tools. It implements
// Compiler, Preprocessor, Disassembler, Validator, Assembler and
// Optimizer.
type ToolClient struct {
	opts Options
	log  *zap.Logger
}

var (
	_ Compiler     = (*ToolClient)(nil)
	_ Preprocessor = (*ToolClient)(nil)
	_ Disassembler = (*ToolClient)(nil)
	_ Validator    = (*ToolClient)(nil)
	_ Assembler    = (*ToolClient)(nil)
	_ Optimizer    = (*ToolClient)(nil)
)

// NewToolClient returns a client for the given options.
func NewToolClient(opts Options) *ToolClient {
	if opts.Compiler == "" {
		opts.Compiler = "dxc"
	}
	if opts.Validator == "" {
		opts.Validator = "dxv"
	}
	if opts.Assembler == "" {
		opts.Assembler = "dxa"
	}
	if opts.Optimizer == "" {
		opts.Optimizer = "dxopt"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &ToolClient{opts: opts, log: log}
}

// NewFromProfile initializes a client from a named configuration profile.
func NewFromProfile(profileName string) (*ToolClient, error) {
	profile, err := config.LoadProfileByName(profileName)
	if err != nil {
		return nil, err
	}
	return NewToolClient(Options{
		Compiler:  profile.CompilerPath,
		ExtraArgs: profile.ExtraArgs,
	}), nil
}

// Compile compiles HLSL source into a shader container blob.
func (c *ToolClient) Compile(ctx context.Context, src Source) (Result, error) {
	if src.Profile == "" {
		return Result{}, errors.New("target profile is required")
	}

	dir, err := os.MkdirTemp("", "dxc-compile-")
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to create scratch directory")
	}
	defer os.RemoveAll(dir)

	name := src.Name
	if name == "" {
		name = "shader.hlsl"
	}
	inPath := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(inPath, []byte(src.Text), 0o600); err != nil {
		return Result{}, errors.Wrap(err, "failed to write shader source")
	}
	outPath := filepath.Join(dir, "shader.cso")

	_, diag, runErr := c.run(ctx, c.opts.Compiler, compileArgs(src, c.opts.ExtraArgs, inPath, outPath))
	if runErr != nil {
		return Result{Messages: diag}, errors.Wrapf(runErr, "dxc failed for %s", name)
	}

	object, err := os.ReadFile(outPath)
	if err != nil {
		return Result{Messages: diag}, errors.Wrap(err, "failed to read compiled object")
	}
	return Result{Object: object, Messages: diag}, nil
}

// Preprocess expands includes and macros without compiling. The result
// object holds the preprocessed HLSL text. No target profile is needed;
// dxc's -P mode runs before target selection.
func (c *ToolClient) Preprocess(ctx context.Context, src Source) (Result, error) {
	dir, err := os.MkdirTemp("", "dxc-preprocess-")
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to create scratch directory")
	}
	defer os.RemoveAll(dir)

	name := src.Name
	if name == "" {
		name = "shader.hlsl"
	}
	inPath := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(inPath, []byte(src.Text), 0o600); err != nil {
		return Result{}, errors.Wrap(err, "failed to write shader source")
	}
	outPath := filepath.Join(dir, "preprocessed.hlsl")

	_, diag, runErr := c.run(ctx, c.opts.Compiler, preprocessArgs(src, inPath, outPath))
	if runErr != nil {
		return Result{Messages: diag}, errors.Wrapf(runErr, "dxc -P failed for %s", name)
	}

	text, err := os.ReadFile(outPath)
	if err != nil {
		return Result{Messages: diag}, errors.Wrap(err, "failed to read preprocessed source")
	}
	return Result{Object: text, Messages: diag}, nil
}

// Disassemble renders a compiled blob as assembly text.
func (c *ToolClient) Disassemble(ctx context.Context, blob []byte) (string, error) {
	path, cleanup, err := writeBlob(blob, "blob.cso")
	if err != nil {
		return "", err
	}
	defer cleanup()

	stdout, _, runErr := c.run(ctx, c.opts.Compiler, disassembleArgs(path))
	if runErr != nil {
		return "", errors.Wrap(runErr, "dxc -dumpbin failed")
	}
	return stdout, nil
}

// Validate checks a container blob. With ValidatorInPlaceEdit the
// returned object is re-read after validation, picking up any in-place
// patching such as hash filling; otherwise the input blob is returned
// unchanged.
func (c *ToolClient) Validate(ctx context.Context, blob []byte, flags ValidatorFlags) (Result, error) {
	path, cleanup, err := writeBlob(blob, "blob.cso")
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	_, diag, runErr := c.run(ctx, c.opts.Validator, validateArgs(path))
	if runErr != nil {
		return Result{Messages: diag}, errors.Wrap(runErr, "dxv failed")
	}

	object := blob
	if flags&ValidatorInPlaceEdit != 0 {
		object, err = os.ReadFile(path)
		if err != nil {
			return Result{Messages: diag}, errors.Wrap(err, "failed to read validated blob")
		}
	}
	return Result{Object: object, Messages: diag}, nil
}

// AssembleToContainer wraps an LLVM bitcode module into a container.
func (c *ToolClient) AssembleToContainer(ctx context.Context, module []byte) (Result, error) {
	path, cleanup, err := writeBlob(module, "module.bc")
	if err != nil {
		return Result{}, err
	}
	defer cleanup()
	outPath := filepath.Join(filepath.Dir(path), "module.cso")

	_, diag, runErr := c.run(ctx, c.opts.Assembler, assembleArgs(path, outPath))
	if runErr != nil {
		return Result{Messages: diag}, errors.Wrap(runErr, "dxa failed")
	}

	object, err := os.ReadFile(outPath)
	if err != nil {
		return Result{Messages: diag}, errors.Wrap(err, "failed to read assembled container")
	}
	return Result{Object: object, Messages: diag}, nil
}

// Passes lists the optimizer passes the toolchain offers.
func (c *ToolClient) Passes(ctx context.Context) ([]PassInfo, error) {
	stdout, _, err := c.run(ctx, c.opts.Optimizer, []string{"-passes"})
	if err != nil {
		return nil, errors.Wrap(err, "dxopt -passes failed")
	}
	return parsePasses(stdout), nil
}

// RunOptimizer applies the given pass options to a module blob.
func (c *ToolClient) RunOptimizer(ctx context.Context, blob []byte, options []string) (OptimizeResult, error) {
	path, cleanup, err := writeBlob(blob, "module.bc")
	if err != nil {
		return OptimizeResult{}, err
	}
	defer cleanup()
	outPath := filepath.Join(filepath.Dir(path), "module.opt.bc")

	stdout, diag, runErr := c.run(ctx, c.opts.Optimizer, optimizeArgs(path, outPath, options))
	if runErr != nil {
		return OptimizeResult{Text: diag}, errors.Wrap(runErr, "dxopt failed")
	}

	module, err := os.ReadFile(outPath)
	if err != nil {
		return OptimizeResult{Text: stdout}, errors.Wrap(err, "failed to read optimized module")
	}
	return OptimizeResult{Module: module, Text: stdout}, nil
}

// Version queries the compiler binary's version.
func (c *ToolClient) Version(ctx context.Context) (VersionInfo, error) {
	stdout, _, err := c.run(ctx, c.opts.Compiler, []string{"--version"})
	if err != nil {
		return VersionInfo{}, errors.Wrap(err, "dxc --version failed")
	}
	info, ok := parseVersion(stdout)
	if !ok {
		return VersionInfo{}, errors.Errorf("unrecognized version output %q", strings.TrimSpace(stdout))
	}
	return info, nil
}

func (c *ToolClient) run(ctx context.Context, tool string, args []string) (stdout, stderr string, err error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, tool, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err = cmd.Run()

	exit := -1
	if cmd.ProcessState != nil {
		exit = cmd.ProcessState.ExitCode()
	}
	c.log.Debug("ran toolchain command",
		zap.String("tool", tool),
		zap.Strings("args", args),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("exit", exit),
		zap.Error(err))

	return out.String(), errb.String(), err
}

// writeBlob stages a blob in a scratch directory and returns its path
// with a cleanup function for the whole directory.
func writeBlob(blob []byte, name string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "dxc-blob-")
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create scratch directory")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		os.RemoveAll(dir)
		return "", nil, errors.Wrap(err, "failed to write blob")
	}
	return path, func() { os.RemoveAll(dir) }, nil
}

// compileArgs assembles the dxc command line for a source. Kept pure so
// argument construction is testable without running the tool.
func compileArgs(src Source, extra []string, inPath, outPath string) []string {
	args := []string{"-T", src.Profile}

	// Library profiles compile all exports; dxc rejects -E for them.
	if !strings.HasPrefix(src.Profile, "lib_") {
		entry := src.EntryPoint
		if entry == "" {
			entry = "main"
		}
		args = append(args, "-E", entry)
	}

	args = appendDefines(args, src.Defines)
	args = append(args, src.Args...)
	args = append(args, extra...)
	args = append(args, "-Fo", outPath, inPath)
	return args
}

// preprocessArgs assembles the dxc command line for -P mode. Compile
// options do not apply there, so only the defines and the caller's own
// arguments pass through.
func preprocessArgs(src Source, inPath, outPath string) []string {
	args := appendDefines([]string{"-P", "-Fi", outPath}, src.Defines)
	args = append(args, src.Args...)
	args = append(args, inPath)
	return args
}

// appendDefines adds a -D flag per preprocessor define.
func appendDefines(args []string, defines []Define) []string {
	for _, d := range defines {
		if d.Value == "" {
			args = append(args, "-D", d.Name)
		} else {
			args = append(args, "-D", d.Name+"="+d.Value)
		}
	}
	return args
}

func disassembleArgs(blobPath string) []string {
	return []string{"-dumpbin", blobPath}
}

func validateArgs(blobPath string) []string {
	return []string{blobPath}
}

func assembleArgs(modulePath, outPath string) []string {
	return []string{modulePath, "-o", outPath}
}

func optimizeArgs(inPath, outPath string, options []string) []string {
	args := []string{"-o", outPath}
	args = append(args, options...)
	args = append(args, inPath)
	return args
}

// parsePasses extracts pass names and descriptions from dxopt -passes
// output. Passes are listed one per line as the option name, optionally
// followed by a description; surrounding prose is skipped.
func parsePasses(text string) []PassInfo {
	var passes []PassInfo
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		name, desc, _ := strings.Cut(line, " ")
		passes = append(passes, PassInfo{Name: name, Description: strings.TrimSpace(desc)})
	}
	return passes
}

// parseVersion pulls the first "major.minor" pair out of a version
// banner such as "dxcompiler.dll: 1.7 - 1.7.2212.40". Debug builds of
// the compiler mark their banner, which sets VersionDebug.
func parseVersion(text string) (VersionInfo, bool) {
	i := 0
	for i < len(text) {
		if !isDigit(text[i]) {
			i++
			continue
		}
		j := i
		for j < len(text) && isDigit(text[j]) {
			j++
		}
		if j < len(text) && text[j] == '.' && j+1 < len(text) && isDigit(text[j+1]) {
			k := j + 1
			for k < len(text) && isDigit(text[k]) {
				k++
			}
			major, _ := strconv.ParseUint(text[i:j], 10, 32)
			minor, _ := strconv.ParseUint(text[j+1:k], 10, 32)
			info := VersionInfo{Major: uint32(major), Minor: uint32(minor)}
			if strings.Contains(strings.ToLower(text), "debug") {
				info.Flags |= VersionDebug
			}
			return info, true
		}
		i = j
	}
	return VersionInfo{}, false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
