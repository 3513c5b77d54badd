// Command dxbcdump inspects compiled shader containers.
//
// Usage:
//
//	dxbcdump [options] <file>
//
// Examples:
//
//	dxbcdump shader.cso                  # Print the labeled range tree
//	dxbcdump -parts shader.cso           # List parts with offsets and sizes
//	dxbcdump -at 352 shader.cso          # Show the nodes covering bit 352
//	dxbcdump -part DXIL shader.cso       # Write the DXIL part body to stdout
//	dxbcdump -hex shader.cso             # Hex dump grouped by decoded node
//
// Malformed input never crashes the tree views: undecodable regions show
// up as annotated nodes in the output.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/gogpu/dxbc"
	"github.com/gogpu/dxbc/bitview"
	"github.com/gogpu/dxbc/container"
)

var (
	atBit     = flag.Int64("at", -1, "hit-test a bit offset and print the descent path")
	partTag   = flag.String("part", "", "write the first part body with this FourCC to stdout")
	listParts = flag.Bool("parts", false, "list parts with kind, byte offset and size")
	asJSON    = flag.Bool("json", false, "emit the tree as JSON")
	asHex     = flag.Bool("hex", false, "hex dump annotated with the deepest node per byte")
	searchFor = flag.String("search", "", "search the rendered tree text")
	probeAt   = flag.Int64("probe", -1, "print primitive interpretations at a byte offset")
	verbose   = flag.Bool("v", false, "verbose decode log on stderr")
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

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	log.Debug("read input", zap.String("path", args[0]), zap.Int("bytes", len(data)))

	switch {
	case *partTag != "":
		err = dumpPart(data, *partTag)
	case *listParts:
		err = dumpParts(data)
	case *probeAt >= 0:
		err = dumpProbe(data, int(*probeAt))
	default:
		root := dxbc.Outline(data)
		log.Debug("decoded tree", zap.Uint64("bits", root.Range.End()))
		switch {
		case *atBit >= 0:
			dumpPath(root, uint64(*atBit))
		case *asJSON:
			err = dumpJSON(root)
		case *asHex:
			err = dumpHex(root, data)
		case *searchFor != "":
			dumpSearch(root, *searchFor)
		default:
			err = bitview.Fprint(os.Stdout, root)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// dumpPart writes the first part body with the given tag to stdout.
func dumpPart(data []byte, tag string) error {
	if len(tag) != 4 {
		return fmt.Errorf("part tag %q is not four characters", tag)
	}
	c, err := dxbc.Load(data)
	if err != nil {
		return err
	}
	i, err := c.FindFirstPart(container.MakeFourCC(tag[0], tag[1], tag[2], tag[3]))
	if err != nil {
		return err
	}
	body, err := c.PartContent(i)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(body)
	return err
}

// dumpParts lists the container's parts with their byte layout and a
// summary of each body the typed parsers understand.
func dumpParts(data []byte) error {
	c, err := dxbc.Load(data)
	if err != nil {
		return err
	}
	for i, p := range c.Parts() {
		desc := container.Description(p.Kind)
		if desc == "" {
			desc = container.KindOf(p.Kind).String()
		}
		fmt.Printf("%2d  %-4s  %-24s  offset %8d  size %8d%s\n",
			i, p.Kind, desc, p.Offset, p.Size, partDetail(c, i, p.Kind))
	}
	return nil
}

// partDetail summarizes a part body, or returns "" for kinds without a
// typed parser.
func partDetail(c *container.Container, i int, kind container.FourCC) string {
	body, err := c.PartContent(i)
	if err != nil {
		return ""
	}
	switch container.KindOf(kind) {
	case container.PartKindProgram:
		if h, perr := container.ParseProgramHeader(body); perr == nil {
			return "  " + h.Version.String()
		}
	case container.PartKindSignature:
		if sig, perr := container.ParseSignature(kind, body); perr == nil {
			return fmt.Sprintf("  %d params", len(sig.Params))
		}
	case container.PartKindFeatureInfo:
		if f, perr := container.ParseFeatureFlags(body); perr == nil {
			return "  " + f.String()
		}
	case container.PartKindDebugName:
		if dn, perr := container.ParseDebugName(body); perr == nil {
			return "  " + dn.Name
		}
	}
	return ""
}

// dumpPath prints the descent chain covering one bit offset.
func dumpPath(root *bitview.Node, q uint64) {
	path := bitview.Path(root, q)
	if len(path) == 0 {
		fmt.Printf("no node covers bit %d\n", q)
		return
	}
	for i, n := range path {
		fmt.Printf("%s%s  %s\n", strings.Repeat("  ", i), n.Label, n.Range)
	}
}

type jsonNode struct {
	Label    string     `json:"label"`
	Offset   uint64     `json:"offset"`
	Length   uint64     `json:"length"`
	Children []jsonNode `json:"children,omitempty"`
}

func toJSON(n *bitview.Node) jsonNode {
	out := jsonNode{Label: n.Label}
	if n.Range != nil {
		out.Offset = n.Range.Start
		out.Length = n.Range.Length
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, toJSON(c))
	}
	return out
}

func dumpJSON(root *bitview.Node) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSON(root))
}

// dumpHex prints a hex dump with bytes grouped by the deepest node that
// covers them, so a run of bytes reads as "these bytes are the hash".
func dumpHex(root *bitview.Node, data []byte) error {
	w := bufio.NewWriter(os.Stdout)
	i := 0
	for i < len(data) {
		n := bitview.At(root, uint64(i)*8)
		j := i + 1
		for j < len(data) && bitview.At(root, uint64(j)*8) == n {
			j++
		}
		label := ""
		if n != nil {
			label = n.Label
		}
		for k := i; k < j; k += 16 {
			end := k + 16
			if end > j {
				end = j
			}
			fmt.Fprintf(w, "%06x  %-47s", k, hexBytes(data[k:end]))
			if k == i && label != "" {
				fmt.Fprintf(w, "  %s", label)
			}
			fmt.Fprintln(w)
		}
		i = j
	}
	return w.Flush()
}

func hexBytes(b []byte) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", v)
	}
	return sb.String()
}

// dumpSearch searches the rendered tree text and prints each match with
// its byte span and the line it appears on.
func dumpSearch(root *bitview.Node, needle string) {
	text := bitview.Sprint(root)
	matches := bitview.Search(text, needle, bitview.SearchOptions{})
	if len(matches) == 0 {
		fmt.Printf("no matches for %q\n", needle)
		return
	}
	for _, m := range matches {
		fmt.Printf("[%d:%d] %s\n", m.ByteStart, m.ByteEnd, strings.TrimSpace(lineAround(text, m.ByteStart)))
	}
}

// lineAround returns the full line containing byte offset pos.
func lineAround(text string, pos int) string {
	start := strings.LastIndexByte(text[:pos], '\n') + 1
	end := strings.IndexByte(text[pos:], '\n')
	if end == -1 {
		return text[start:]
	}
	return text[start : pos+end]
}

func dumpProbe(data []byte, offset int) error {
	p, err := bitview.ProbeAt(data, offset)
	if err != nil {
		return err
	}
	fmt.Println(p)
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: dxbcdump [options] <file>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  dxbcdump shader.cso             Print the labeled range tree\n")
	fmt.Fprintf(os.Stderr, "  dxbcdump -parts shader.cso      List parts with offsets and sizes\n")
	fmt.Fprintf(os.Stderr, "  dxbcdump -at 352 shader.cso     Show the nodes covering bit 352\n")
	fmt.Fprintf(os.Stderr, "  dxbcdump -part DXIL shader.cso  Write the DXIL part body to stdout\n")
	fmt.Fprintf(os.Stderr, "  dxbcdump -search TEXCOORD shader.cso\n")
}
