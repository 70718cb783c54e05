package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelnet/dpsession/internal/wire"
)

var (
	// bindAddr is the local TCP/UDP bind address used by every subcommand
	// that opens sockets (enum, host, join).
	bindAddr string

	// discoveryPort is the UDP port used for broadcast host enumeration.
	discoveryPort int

	// broadcastAddr is the destination used by enum.
	broadcastAddr string

	// bindDevice optionally pins sockets to one network interface.
	bindDevice string

	// applicationGUIDHex is the hex-encoded application GUID filter/identity.
	applicationGUIDHex string

	// playerName is the local participant's display name.
	playerName string
)

// rootCmd is the top-level cobra command for dpsessionctl.
var rootCmd = &cobra.Command{
	Use:   "dpsessionctl",
	Short: "CLI client for the dpsession peer-to-peer session library",
	Long:  "dpsessionctl hosts, joins, and enumerates dpsession sessions directly -- there is no separate daemon to talk to.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&bindAddr, "bind", ":0", "local bind address (host:port)")
	rootCmd.PersistentFlags().IntVar(&discoveryPort, "discovery-port", 6072, "UDP discovery port")
	rootCmd.PersistentFlags().StringVar(&broadcastAddr, "broadcast", "255.255.255.255:6072", "broadcast address for enumeration")
	rootCmd.PersistentFlags().StringVar(&bindDevice, "interface", "", "bind sockets to this network interface (SO_BINDTODEVICE)")
	rootCmd.PersistentFlags().StringVar(&applicationGUIDHex, "app-guid", "", "application GUID, 32 hex characters")
	rootCmd.PersistentFlags().StringVar(&playerName, "name", "player", "local player display name")

	rootCmd.AddCommand(enumCmd())
	rootCmd.AddCommand(hostCmd())
	rootCmd.AddCommand(joinCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func parseAppGUID() (wire.GUID, error) {
	var g wire.GUID
	if applicationGUIDHex == "" {
		return g, nil
	}
	return parseGUIDHex(applicationGUIDHex)
}
