package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listenCmd = &cobra.Command{
	Use:   "listen <event>...",
	Short: "Subscribe to provider events and print them",
	Long: `Registers listeners for the named events before the connection
exists, then warms the proxy (dialing with retry) and streams events
until interrupted. Demonstrates that listeners registered ahead of
construction survive onto the live connection.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proxy, err := newProxy()
		if err != nil {
			return err
		}

		eventColor := color.New(color.FgGreen, color.Bold)
		for _, event := range args {
			event := event
			proxy.On(event, func(eventArgs ...any) {
				eventColor.Printf("%s ", event)
				fmt.Println(formatArgs(eventArgs))
			})
		}

		// Listeners are in place before any connection exists; Warm dials
		// with retry and migrates them onto the live provider.
		if err := proxy.Warm(cmd.Context()); err != nil {
			return fmt.Errorf("connect: %w", err)
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
		case <-cmd.Context().Done():
		}
		return nil
	},
}

func formatArgs(args []any) string {
	if len(args) == 1 {
		if data, err := json.Marshal(args[0]); err == nil {
			return string(data)
		}
	}
	if data, err := json.Marshal(args); err == nil {
		return string(data)
	}
	return fmt.Sprint(args...)
}
