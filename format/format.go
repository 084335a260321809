// Package format defines the boundary the core's result crosses on its way
// to on-disk and console rendering. Rendering itself (markdown layout,
// terminal coloring) is an external collaborator and out of scope here;
// this package is the seam and the two file paths the core's documented
// external interface names.
package format

import "fmt"

// Formatter renders a sealed consultation result for a destination. result
// is expected to be the same value JSON-marshaled to the final result file
// (runtime/consult.Result); Formatter takes any to avoid an import cycle
// between format and consult.
type Formatter interface {
	Format(result any) (string, error)
}

// ResultJSONPath returns the documented final-result JSON path for a
// consultation id: "<logdir>/consult-<id>.json".
func ResultJSONPath(logDir, consultationID string) string {
	return fmt.Sprintf("%s/consult-%s.json", logDir, consultationID)
}

// ResultMarkdownPath returns the documented human-readable result path for a
// consultation id: "<logdir>/consult-<id>.md".
func ResultMarkdownPath(logDir, consultationID string) string {
	return fmt.Sprintf("%s/consult-%s.md", logDir, consultationID)
}
