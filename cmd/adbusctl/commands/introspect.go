package commands

import (
	"context"
	"fmt"

	"github.com/ohporter/adbus"
	"github.com/ohporter/adbus/cmd/adbusctl/cmdutil"
	"github.com/spf13/cobra"
)

var introspectCmd = &cobra.Command{
	Use:   "introspect <destination> <path>",
	Short: "Fetch and print an object's introspection XML",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		destination, path := args[0], args[1]

		ctx := context.Background()
		conn, err := cmdutil.Connect(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		it, err := adbus.NewProxy(conn, destination, path).
			Call("org.freedesktop.DBus.Introspectable", "Introspect").
			Block(ctx)
		if err != nil {
			return fmt.Errorf("introspect failed: %w", err)
		}
		doc, err := it.ReadString()
		if err != nil {
			return fmt.Errorf("reading introspection document: %w", err)
		}
		fmt.Println(doc)
		return nil
	},
}
