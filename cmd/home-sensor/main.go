// Home-sensor is the firmware daemon for a networked humidity/temperature
// sensor.
//
// It samples a DHT11 on a fixed cadence, keeps a ring of recent readings
// in flash, and answers JSON requests from paired clients on TCP port
// 42069. Pairing is gated by a physical button (SIGUSR1 on Linux boards).
//
// Usage:
//
//	home-sensor serve [flags]
//
// See 'home-sensor serve --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/homesensor/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "home-sensor",
	Short: "Home humidity/temperature sensor daemon",
	Long: `The home-sensor daemon reads a DHT11, stores a rolling history of
readings and serves them to paired clients.

Use the separate 'sensor-cfg' utility to discover, pair with and
configure sensors.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("home-sensor %s\n", version.Full())
	},
}
