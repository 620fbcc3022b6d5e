// Package commands implements the adbusctl command-line client.
package commands

import (
	"os"

	"github.com/ohporter/adbus/cmd/adbusctl/cmdutil"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "adbusctl",
	Short: "adbusctl - D-Bus inspection and invocation client",
	Long: `adbusctl talks to a D-Bus session or system bus the same way
busctl and d-feet do: listing names, introspecting objects, calling
methods and watching signals.

Use "adbusctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.Address, _ = cmd.Flags().GetString("address")
		cmdutil.Flags.System, _ = cmd.Flags().GetBool("system")
		cmdutil.Flags.Session, _ = cmd.Flags().GetBool("session")
		cmdutil.Flags.Timeout, _ = cmd.Flags().GetDuration("timeout")
		cmdutil.Flags.ConfigFile, _ = cmd.Flags().GetString("config")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("address", "", "D-Bus server address (overrides --system/--session)")
	rootCmd.PersistentFlags().Bool("system", false, "Connect to the system bus")
	rootCmd.PersistentFlags().Bool("session", false, "Connect to the session bus (default)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Connection handshake timeout (0 uses the configured default)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/adbus/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(introspectCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(namesCmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
