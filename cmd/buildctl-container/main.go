// buildctl-container — re-runs buildctl inside the development container.
// Run it from the same directory buildctl is normally started from.
package main

import "github.com/f9-o/buildctl/internal/cli"

func main() {
	cli.ExecuteContainer()
}
