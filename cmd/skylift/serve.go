package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/skylift/skylift/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only deployments API",
	Run:   runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to server.addr from config)")
}

func runServe(cmd *cobra.Command, _ []string) {
	a := newApp(cmd.Context())
	defer a.close()

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	a.log.WithField("addr", addr).Info("starting API server")
	srv := api.NewAPI(a.deploys, a.observe, a.log)
	if err := srv.Run(addr); err != nil {
		log.Fatalf("API server failed: %v", err)
	}
}
