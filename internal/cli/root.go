// Package cli implements the quarry command line: offline catalog and
// quality tools plus a live monitor for a running server's queue.
package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "estimate":
		return runEstimate(args[1:])
	case "locations":
		return runLocations(args[1:])
	case "quality":
		return runQuality(args[1:])
	case "watch":
		return runWatch(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Fprintln(stdout, "quarry: local business extraction toolkit")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Commands:")
	fmt.Fprintln(stdout, "  estimate   count the queries a location selection would generate")
	fmt.Fprintln(stdout, "  locations  list the location catalog")
	fmt.Fprintln(stdout, "  quality    score a JSON array of businesses (optionally export CSV)")
	fmt.Fprintln(stdout, "  watch      live queue monitor for a running server")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Notes:")
	fmt.Fprintln(stdout, "  - Use --json on commands for machine-readable output")
	fmt.Fprintln(stdout, "  - Selections take comma-separated codes, or ALL for every child")
}
