// Sensor-cfg is the companion utility for home-sensor devices.
//
// It finds sensors with mDNS, pairs with them using the button on the
// device, and reads or changes their settings, history and LED. Paired
// sensors are remembered in the user's config directory.
//
// Usage:
//
//	sensor-cfg [command] [flags]
//
// See 'sensor-cfg --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/homesensor/internal/logging"
	"github.com/muurk/homesensor/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sensor-cfg",
	Short: "Home sensor configuration utility",
	Long: `A utility for discovering, pairing with and configuring home-sensor devices.

Start with 'sensor-cfg scan' to find sensors on the local network, then
'sensor-cfg pair <sensor>' while pressing the sensor's button.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Silent unless HOMESENSOR_LOG_LEVEL is set.
		return logging.InitializeFromEnv()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sensor-cfg %s\n", version.Full())
	},
}
