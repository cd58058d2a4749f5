package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeplan/internal/apiclient"
	"github.com/Tiliavir/timeplan/internal/model"
)

var signupCmd = &cobra.Command{
	Use:   "signup <email>",
	Short: "Create a user on the configured server or in the local store",
	Args:  cobra.ExactArgs(1),
	RunE:  runSignup,
}

func runSignup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	email := strings.TrimSpace(args[0])
	if email == "" {
		return usageErrorf("email is required")
	}

	var (
		u   model.User
		err error
	)
	if cfg.Remote() {
		u, err = apiclient.New(ctx, cfg.Server.URL, "").Signup(ctx, email)
	} else {
		db, openErr := openDB(cfg)
		if openErr != nil {
			return storageErr(openErr)
		}
		defer db.Close()
		u, err = createUser(ctx, db, email)
	}
	if err != nil {
		return storageErr(err)
	}
	slog.Debug("signed up", "id", u.ID, "remote", cfg.Remote())

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Signed up %s as %s", u.Email, u.Username)
	if u.IsAdmin {
		fmt.Fprint(w, " (admin)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Token: %s\n", u.Token)
	if cfg.Remote() {
		fmt.Fprintln(w, "Store it as server.token in your config or TIMEPLAN_SERVER_TOKEN.")
	}
	return nil
}
