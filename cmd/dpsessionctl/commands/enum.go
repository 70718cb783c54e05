package commands

import (
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelnet/dpsession/internal/discovery"
)

func enumCmd() *cobra.Command {
	var (
		enumCount     int
		retryInterval time.Duration
		timeout       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "enum",
		Short: "Broadcast HOST_ENUM_REQUEST and print every HOST_ENUM_RESPONSE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appGUID, err := parseAppGUID()
			if err != nil {
				return err
			}

			conn, err := net.ListenPacket("udp4", bindAddr)
			if err != nil {
				return fmt.Errorf("listen udp: %w", err)
			}
			defer conn.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			req := discovery.Request{
				ApplicationGUID: appGUID,
				BroadcastAddr:   broadcastAddr,
				Schedule: discovery.Schedule{
					EnumCount:     enumCount,
					RetryInterval: retryInterval,
					Timeout:       timeout,
				},
			}

			found := 0
			err = discovery.Enumerate(ctx, conn, req, nil, func(r discovery.Response) {
				found++
				fmt.Printf("%-22s %-24s players=%d/%d\n", r.From, r.SessionName, r.CurrentPlayers, r.MaxPlayers)
			})
			if err != nil {
				return err
			}

			fmt.Printf("%d host(s) found\n", found)
			return nil
		},
	}

	cmd.Flags().IntVar(&enumCount, "count", 4, "number of HOST_ENUM_REQUEST broadcasts")
	cmd.Flags().DurationVar(&retryInterval, "retry", 500*time.Millisecond, "interval between broadcasts")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "time to wait after the last broadcast")

	return cmd
}
