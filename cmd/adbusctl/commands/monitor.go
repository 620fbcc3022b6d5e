package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ohporter/adbus"
	"github.com/ohporter/adbus/cmd/adbusctl/cmdutil"
	"github.com/spf13/cobra"
)

var (
	monitorSender    string
	monitorInterface string
	monitorMember    string
	monitorPath      string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print matching signals as they arrive until interrupted",
	Long: `monitor adds a single match rule built from its flags and prints
each matching signal until Ctrl+C, the bus-watching counterpart of
dittofs logs -f.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		conn, err := cmdutil.Connect(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		rule := adbus.MatchRule{
			Type:      adbus.TypeSignal,
			Sender:    monitorSender,
			Interface: monitorInterface,
			Member:    monitorMember,
			Path:      monitorPath,
		}

		id := conn.AddMatch(rule, func(m *adbus.Message) {
			fmt.Printf("%s %s %s.%s %s\n",
				time.Now().Format(time.RFC3339),
				m.Sender, m.Interface, m.Member,
				adbus.FormatBody(m.Body()))
		})
		defer conn.RemoveMatch(id)

		fmt.Fprintln(os.Stderr, "Monitoring signals (Ctrl+C to stop)...")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		return nil
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monitorSender, "sender", "", "Match only signals from this unique or well-known name")
	monitorCmd.Flags().StringVar(&monitorInterface, "interface", "", "Match only signals on this interface")
	monitorCmd.Flags().StringVar(&monitorMember, "member", "", "Match only signals with this name")
	monitorCmd.Flags().StringVar(&monitorPath, "path", "", "Match only signals from this object path")
}
