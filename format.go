package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
	"text/tabwriter"
)

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// newTabWriter returns a tabwriter for aligned column output on stdout.
func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

// splitRemote splits a library path into its folder and file name parts.
// "Reports/Q3/summary.docx" becomes ("Reports/Q3", "summary.docx"); a bare
// name lives in the library root.
func splitRemote(remotePath string) (folder, name string) {
	cleaned := strings.Trim(remotePath, "/")
	dir, base := path.Split(cleaned)

	return strings.Trim(dir, "/"), base
}

// formatSize renders a byte count in human-friendly units.
func formatSize(size int64) string {
	const unit = 1024

	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
