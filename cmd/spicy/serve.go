package main

import (
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/spicy/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat backend over HTTP and WebSocket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, cfg, err := newKernel()
		if err != nil {
			return err
		}
		defer k.Close()

		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		srv := server.New(&cfg.Server, k.Store(), k.Streamer(), k.Workspace(), server.WithObserver(k.Observer()))
		cmd.Printf("Listening on %s\n", cfg.Server.Addr)
		return srv.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}
