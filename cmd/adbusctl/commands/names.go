package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/ohporter/adbus"
	"github.com/ohporter/adbus/cmd/adbusctl/cmdutil"
	"github.com/spf13/cobra"
)

const (
	busDestination = "org.freedesktop.DBus"
	busPath        = "/org/freedesktop/DBus"
	busInterface   = "org.freedesktop.DBus"
)

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "List the names currently registered on the bus",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		conn, err := cmdutil.Connect(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		it, err := adbus.NewProxy(conn, busDestination, busPath).
			Call(busInterface, "ListNames").
			Block(ctx)
		if err != nil {
			return fmt.Errorf("listing names: %w", err)
		}

		arr, err := it.BeginArray()
		if err != nil {
			return fmt.Errorf("reading name list: %w", err)
		}
		var names []string
		for arr.InArray() {
			elem := arr.Next()
			s, err := elem.ReadString()
			if err != nil {
				return fmt.Errorf("reading name: %w", err)
			}
			names = append(names, s)
			arr.Advance(elem)
		}

		sort.Strings(names)
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}
