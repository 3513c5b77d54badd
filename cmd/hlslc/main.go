// Command hlslc compiles HLSL source through the external dxc toolchain.
//
// Usage:
//
//	hlslc [options] <input.hlsl>
//
// The toolchain location and default target come from the named profile
// in the user's dxbc.toml; flags override the profile.
//
// Examples:
//
//	hlslc shader.hlsl                       # Compile with profile defaults
//	hlslc -T cs_6_5 -E cs_main shader.hlsl  # Override target and entry
//	hlslc -dump shader.hlsl                 # Print the container outline
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gogpu/dxbc"
	"github.com/gogpu/dxbc/bitview"
	"github.com/gogpu/dxbc/config"
	"github.com/gogpu/dxbc/dxc"
)

var (
	profileName = flag.String("profile", "default", "configuration profile to use")
	target      = flag.String("T", "", "target profile, e.g. ps_6_0 (overrides the config profile)")
	entry       = flag.String("E", "", "entry point name (overrides the config profile)")
	output      = flag.String("o", "", "output file (default: input with .cso extension)")
	dump        = flag.Bool("dump", false, "print the compiled container outline instead of writing it")
	verbose     = flag.Bool("v", false, "verbose toolchain log on stderr")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one input file is required")
		usage()
		os.Exit(1)
	}
	inputPath := args[0]

	profile, err := config.LoadProfileByName(*profileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading profile: %v\n", err)
		os.Exit(1)
	}

	log := zap.NewNop()
	if *verbose {
		dev, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer dev.Sync()
		log = dev
	}

	text, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	targetProfile := profile.TargetProfile
	if *target != "" {
		targetProfile = *target
	}
	entryPoint := profile.EntryPoint
	if *entry != "" {
		entryPoint = *entry
	}

	client := dxc.NewToolClient(dxc.Options{
		Compiler:  profile.CompilerPath,
		ExtraArgs: profile.ExtraArgs,
		Logger:    log,
	})

	res, err := client.Compile(context.Background(), dxc.Source{
		Name:       inputPath,
		Text:       string(text),
		EntryPoint: entryPoint,
		Profile:    targetProfile,
	})
	if res.Messages != "" {
		fmt.Fprint(os.Stderr, res.Messages)
		if !strings.HasSuffix(res.Messages, "\n") {
			fmt.Fprintln(os.Stderr)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation error: %v\n", err)
		os.Exit(1)
	}

	if *dump {
		if err := bitview.Fprint(os.Stdout, dxbc.Outline(res.Object)); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
		return
	}

	outPath := *output
	if outPath == "" {
		outPath = replaceExt(inputPath, ".cso")
	}
	if err := os.WriteFile(outPath, res.Object, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully compiled %s to %s (%d bytes)\n", inputPath, outPath, len(res.Object))
}

// replaceExt swaps the path's extension, appending when there is none.
func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: hlslc [options] <input.hlsl>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  hlslc shader.hlsl                       Compile with profile defaults\n")
	fmt.Fprintf(os.Stderr, "  hlslc -T cs_6_5 -E cs_main shader.hlsl  Override target and entry\n")
	fmt.Fprintf(os.Stderr, "  hlslc -dump shader.hlsl                 Print the container outline\n")
}
