package commands

import (
	"context"
	"fmt"

	"github.com/ohporter/adbus"
	"github.com/ohporter/adbus/cmd/adbusctl/cmdutil"
	"github.com/spf13/cobra"
)

var callArgs []string

var callCmd = &cobra.Command{
	Use:   "call <destination> <path> <interface> <member> [args...]",
	Short: "Call a method on a remote object and print its reply",
	Long: `call sends a method_call message and blocks for the reply, the
same round trip busctl call performs.

String arguments are passed via --arg (repeatable); each is appended to
the call body as a D-Bus string, which covers the common case of
passing names and paths. Use a generated client for calls needing
non-string argument types.`,
	Args: cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		destination, path, iface, member := args[0], args[1], args[2], args[3]

		ctx := context.Background()
		conn, err := cmdutil.Connect(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		builder := adbus.NewProxy(conn, destination, path).Call(iface, member)
		for _, a := range callArgs {
			builder.Arg(a)
		}

		it, err := builder.Block(ctx)
		if err != nil {
			return fmt.Errorf("call failed: %w", err)
		}
		fmt.Println(adbus.FormatBody(it))
		return nil
	},
}

func init() {
	callCmd.Flags().StringArrayVar(&callArgs, "arg", nil, "string argument to append to the call body (repeatable)")
}
