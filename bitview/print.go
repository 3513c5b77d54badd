package bitview

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented rendering of the tree to w, one node per line
// with its bit range. Unranged nodes print without a range column, so the
// renderer works on both raw and aggregated trees.
func Fprint(w io.Writer, root *Node) error {
	var err error
	root.Walk(func(n *Node, depth int) bool {
		indent := strings.Repeat("  ", depth)
		if n.Range != nil {
			_, err = fmt.Fprintf(w, "%s%s  %s\n", indent, n.Label, n.Range)
		} else {
			_, err = fmt.Fprintf(w, "%s%s\n", indent, n.Label)
		}
		return err == nil
	})
	return err
}

// Sprint renders the tree to a string, in the same format as Fprint.
func Sprint(root *Node) string {
	var sb strings.Builder
	// strings.Builder never returns a write error.
	_ = Fprint(&sb, root)
	return sb.String()
}
