package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kestrelnet/dpsession/internal/session"
	"github.com/kestrelnet/dpsession/internal/transport"
	"github.com/kestrelnet/dpsession/internal/wire"
)

func joinCmd() *cobra.Command {
	var (
		instanceGUIDHex string
		openShell       bool
	)

	cmd := &cobra.Command{
		Use:   "join <host-addr>",
		Short: "Connect to a host and run the full-mesh join protocol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appGUID, err := parseAppGUID()
			if err != nil {
				return err
			}
			instanceGUID, err := parseInstanceGUID(instanceGUIDHex)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			sockets, err := transport.Open(transport.Config{
				BindAddr:      bindAddr,
				DiscoveryPort: discoveryPort,
				BindDevice:    bindDevice,
			})
			if err != nil {
				return fmt.Errorf("open sockets: %w", err)
			}
			defer sockets.Close()

			sess := session.New(session.Config{
				ApplicationGUID: appGUID,
				PlayerName:      playerName,
				Handler:         printingHandler(),
				Logger:          logger,
				Dial:            transport.DialTCP,
			}, session.Transports{
				Listener:  sockets.Listener,
				UDP:       sockets.UDP,
				Discovery: sockets.Discovery,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			workerPool := session.NewWorkerPool(ctx, 4)
			pump := session.NewPump(sess, workerPool, logger)
			go pump.Run(ctx)

			if err := sess.Connect(session.ConnectConfig{HostAddr: args[0], InstanceGUID: instanceGUID}); err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			if openShell {
				runShell(ctx, sess)
			} else {
				<-ctx.Done()
			}

			return sess.Close(false)
		},
	}

	cmd.Flags().StringVar(&instanceGUIDHex, "instance-guid", "", "expected session instance GUID, 32 hex characters")
	cmd.Flags().BoolVar(&openShell, "shell", false, "open an interactive shell instead of blocking on signals")

	return cmd
}

func parseInstanceGUID(hexGUID string) (wire.GUID, error) {
	if hexGUID == "" {
		return wire.GUID{}, nil
	}
	return parseGUIDHex(hexGUID)
}
