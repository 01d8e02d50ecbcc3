// Command portsweep scans the TCP ports of a host and serves scans over HTTP.
package main

import "github.com/anstrom/portsweep/cmd/cli"

// Set by ldflags, e.g. -X main.version=v1.2.0
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
