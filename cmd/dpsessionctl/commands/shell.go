package commands

import (
	"context"
	"fmt"

	"github.com/reeflective/console"
	"github.com/spf13/cobra"

	"github.com/kestrelnet/dpsession/internal/session"
	"github.com/kestrelnet/dpsession/internal/wire"
)

// runShell attaches an interactive reeflective/console session to sess,
// exposing whoami/send/state subcommands. The console's builtin "exit"
// command, or ctx cancellation racing the read loop, ends the shell.
func runShell(_ context.Context, sess *session.Session) {
	app := console.New("dpsessionctl")
	menu := app.ActiveMenu()
	menu.SetCommands(func() *cobra.Command {
		return shellRoot(sess)
	})

	if err := app.Start(); err != nil {
		fmt.Println("shell exited:", err)
	}
}

// shellRoot builds the cobra command tree served inside the interactive
// shell: listing connected peers and sending application messages
// against the live session.
func shellRoot(sess *session.Session) *cobra.Command {
	root := &cobra.Command{
		Use:   "dpsessionctl",
		Short: "dpsessionctl interactive shell",
	}

	root.AddCommand(&cobra.Command{
		Use:   "whoami",
		Short: "Print the local player id",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("local player id: %d\n", sess.LocalPlayerID())
		},
	})

	var target uint32
	sendCmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Send an application message (guaranteed, synchronous)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			payload := []byte(args[0])
			for _, a := range args[1:] {
				payload = append(payload, ' ')
				payload = append(payload, a...)
			}
			dest := session.AllPlayers
			if target != 0 {
				dest = target
			}
			_, err := sess.SendTo(dest, payload, wire.FlagSync|wire.FlagGuaranteed)
			return err
		},
	}
	sendCmd.Flags().Uint32Var(&target, "to", 0, "target player id, 0 for all players")
	root.AddCommand(sendCmd)

	root.AddCommand(&cobra.Command{
		Use:   "state",
		Short: "Print the session lifecycle state",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(sess.State())
		},
	})

	return root
}
