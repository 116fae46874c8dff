package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/vaultsandbox/trustcore/internal/util/atomicwrite"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	keyColor  = color.New(color.FgCyan)
)

func printOK(w io.Writer, format string, args ...any) {
	okColor.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

func printWarn(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, "! "+format+"\n", args...)
}

func printError(w io.Writer, err error) {
	errColor.Fprint(w, "✗ ")
	fmt.Fprintln(w, err)
}

// printField prints an aligned "name: value" line.
func printField(w io.Writer, name string, value any) {
	keyColor.Fprintf(w, "  %-12s", name+":")
	fmt.Fprintln(w, value)
}

// readInput reads path, or stdin when path is "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// writeOutput writes data to path, or to stdout when path is "" or "-".
func writeOutput(stdout io.Writer, path string, data []byte, perm os.FileMode) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return atomicwrite.WriteFile(path, data, perm)
}

// writeSecret writes data to a new file readable only by the owner.
// Existing files are never replaced.
func writeSecret(path string, data []byte) error {
	return atomicwrite.CreateFile(path, data, 0o600)
}
