package commands

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kestrelnet/dpsession/internal/discovery"
	"github.com/kestrelnet/dpsession/internal/session"
	"github.com/kestrelnet/dpsession/internal/transport"
	"github.com/kestrelnet/dpsession/internal/wire"
)

func hostCmd() *cobra.Command {
	var (
		sessionName string
		password    string
		maxPlayers  uint32
		workers     int
		openShell   bool
	)

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a new session and accept incoming peers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appGUID, err := parseAppGUID()
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
				SessionName:     sessionName,
				Password:        password,
				MaxPlayers:      maxPlayers,
				PlayerName:      playerName,
				Handler:         printingHandler(),
				Logger:          logger,
				Dial:            transport.DialTCP,
			}, session.Transports{
				Listener:  sockets.Listener,
				UDP:       sockets.UDP,
				Discovery: sockets.Discovery,
			})

			instanceGUID, err := uuid.NewRandom()
			if err != nil {
				return err
			}
			if err := sess.Host(session.HostConfig{InstanceGUID: wire.GUID(instanceGUID)}); err != nil {
				return fmt.Errorf("host: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			workerPool := session.NewWorkerPool(ctx, workers)
			pump := session.NewPump(sess, workerPool, logger)
			go pump.Run(ctx)

			go func() {
				_ = discovery.Respond(ctx, sockets.Discovery, appGUID, func(_ wire.HostEnumRequestMsg, _ net.Addr) (discovery.ResponderDesc, bool) {
					desc := sess.GetApplicationDesc()
					return discovery.ResponderDesc{
						InstanceGUID:    wire.GUID(instanceGUID),
						SessionName:     desc.SessionName,
						MaxPlayers:      desc.MaxPlayers,
						ApplicationData: desc.ApplicationData,
					}, true
				}, logger)
			}()

			fmt.Printf("hosting %q on %s (instance %s)\n", sessionName, sockets.Listener.Addr(), wire.GUID(instanceGUID))

			if openShell {
				runShell(ctx, sess)
			} else {
				<-ctx.Done()
			}

			return sess.Close(false)
		},
	}

	cmd.Flags().StringVar(&sessionName, "session", "session", "session name advertised to enumerators")
	cmd.Flags().StringVar(&password, "password", "", "optional join password")
	cmd.Flags().Uint32Var(&maxPlayers, "max-players", 0, "maximum players, 0 for unbounded")
	cmd.Flags().IntVar(&workers, "workers", 4, "handler worker pool size")
	cmd.Flags().BoolVar(&openShell, "shell", false, "open an interactive shell instead of blocking on signals")

	return cmd
}

func printingHandler() session.EventHandler {
	return func(ev session.Event) {
		switch ev.Kind {
		case session.EventCreatePlayer:
			fmt.Printf("player %d (%s) joined\n", ev.PlayerID, ev.PlayerName)
		case session.EventDestroyPlayer:
			fmt.Printf("player %d left (%s)\n", ev.PlayerID, ev.DestroyReason)
		case session.EventReceive:
			fmt.Printf("[%d] %s\n", ev.SenderPlayerID, ev.Payload)
		case session.EventConnectComplete:
			if ev.JoinError != session.JoinErrNone {
				fmt.Printf("join failed: %s\n", ev.JoinError)
			} else {
				fmt.Println("join complete")
			}
		case session.EventTerminateSession:
			fmt.Println("session terminated by host")
		}
	}
}
