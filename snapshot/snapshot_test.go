// Package snapshot_test provides golden snapshot tests for decoded
// container outlines.
//
// Each fixture builds a DXBC container in memory, decodes it into a range
// tree, and compares the rendered outline to a golden file stored in
// testdata/golden/.
//
// To regenerate golden files after intentional changes:
//
//	UPDATE_GOLDEN=1 go test ./snapshot/...
package snapshot_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/dxbc/bitview"
	"github.com/gogpu/dxbc/container"
)

// ---------------------------------------------------------------------------
// Test Runner
// ---------------------------------------------------------------------------

// fixture is one container layout worth pinning. The builder constructs the
// blob so the fixtures stay readable next to their golden files.
type fixture struct {
	name  string
	build func() *container.ContainerBuilder
}

var fixtures = []fixture{
	{name: "empty", build: buildEmpty},
	{name: "features", build: buildFeatures},
	{name: "debug_name", build: buildDebugName},
}

// TestSnapshots is the main golden snapshot test. It builds every fixture
// container, decodes it, and compares the rendered tree with a golden file.
func TestSnapshots(t *testing.T) {
	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			blob, err := fx.build().Build()
			if err != nil {
				t.Fatalf("build fixture container: %v", err)
			}
			outline := bitview.Sprint(bitview.Decode(blob))
			compareGolden(t, filepath.Join("testdata", "golden", fx.name+".txt"), outline)
		})
	}
}

// ---------------------------------------------------------------------------
// Fixture Builders
// ---------------------------------------------------------------------------

func buildEmpty() *container.ContainerBuilder {
	return container.NewContainerBuilder()
}

func buildFeatures() *container.ContainerBuilder {
	b := container.NewContainerBuilder()
	b.AddPart(container.TagSFI0, container.FeatureFlagsPartBody(container.FeatureDoubles))
	return b
}

func buildDebugName() *container.ContainerBuilder {
	b := container.NewContainerBuilder()
	b.AddPart(container.TagILDN, container.DebugNamePartBody("shader.pdb"))
	return b
}

// ---------------------------------------------------------------------------
// Golden File Comparison
// ---------------------------------------------------------------------------

func compareGolden(t *testing.T, path, actual string) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDEN") != "" {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			t.Fatalf("create golden dir: %v", mkErr)
		}
		if wErr := os.WriteFile(path, []byte(actual), 0o644); wErr != nil {
			t.Fatalf("write golden file: %v", wErr)
		}
		t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Fatalf("golden file missing: %s\nRun with UPDATE_GOLDEN=1 to create.\n\nActual output:\n%s", path, truncate(actual, 500))
	}
	if err != nil {
		t.Fatalf("read golden file %s: %v", path, err)
	}

	// Normalize line endings for cross-platform comparison.
	// Git may convert \n to \r\n on Windows checkout.
	expectedStr := strings.ReplaceAll(string(expected), "\r\n", "\n")
	actualStr := strings.ReplaceAll(actual, "\r\n", "\n")

	if expectedStr != actualStr {
		diff := diffStrings(expectedStr, actualStr)
		t.Errorf("output differs from golden %s:\n%s", path, diff)
	}
}

func diffStrings(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var sb strings.Builder
	maxLines := len(expectedLines)
	if len(actualLines) > maxLines {
		maxLines = len(actualLines)
	}

	const contextLines = 3
	firstDiff := -1
	for i := 0; i < maxLines; i++ {
		var eLine, aLine string
		if i < len(expectedLines) {
			eLine = expectedLines[i]
		}
		if i < len(actualLines) {
			aLine = actualLines[i]
		}
		if eLine != aLine {
			firstDiff = i
			break
		}
	}

	if firstDiff < 0 {
		return "(no difference found)"
	}

	fmt.Fprintf(&sb, "first difference at line %d:\n", firstDiff+1)
	fmt.Fprintf(&sb, "  expected lines: %d\n", len(expectedLines))
	fmt.Fprintf(&sb, "  actual lines:   %d\n\n", len(actualLines))

	// Show context around the first difference
	start := firstDiff - contextLines
	if start < 0 {
		start = 0
	}
	end := firstDiff + contextLines + 1
	if end > maxLines {
		end = maxLines
	}

	for i := start; i < end; i++ {
		prefix := " "
		var eLine, aLine string
		if i < len(expectedLines) {
			eLine = expectedLines[i]
		}
		if i < len(actualLines) {
			aLine = actualLines[i]
		}
		if eLine != aLine {
			prefix = "!"
		}
		fmt.Fprintf(&sb, "%s %4d expected: %s\n", prefix, i+1, truncate(eLine, 120))
		if eLine != aLine {
			fmt.Fprintf(&sb, "%s %4d actual:   %s\n", prefix, i+1, truncate(aLine, 120))
		}
	}

	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
