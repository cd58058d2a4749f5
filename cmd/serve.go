package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/auth"
	"github.com/Tiliavir/timeplan/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP data service on the local store",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default server.addr from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	db, err := openDB(cfg)
	if err != nil {
		return storageErr(err)
	}
	defer db.Close()

	srv := server.New(server.Config{
		Addr:        addr,
		AdminEmails: auth.ParseAdminEmails(cfg.AdminEmails),
	}, db, newCompleter(ctx, cfg))
	return storageErr(srv.Run(ctx))
}
