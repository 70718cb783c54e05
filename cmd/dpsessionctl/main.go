// dpsessionctl is a reference CLI for the dpsession peer-to-peer session
// library: it hosts, joins, and enumerates sessions directly, since the
// library has no separate daemon control plane to talk to.
package main

import "github.com/kestrelnet/dpsession/cmd/dpsessionctl/commands"

func main() {
	commands.Execute()
}
