// Package version exposes build-time version metadata and a Cobra
// "version" subcommand that prints it.
package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// These are overridden at build time via -ldflags.
//
//nolint:gochecknoglobals // Build-time injected version metadata.
var (
	Version   = "0.0.0-dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// Full returns version, commit, and build time joined into one line.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}

// AttachCobraVersionCommand registers a "version" subcommand on root that
// prints Full().
func AttachCobraVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	})
}
