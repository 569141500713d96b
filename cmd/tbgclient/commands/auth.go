package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/forum"
	"github.com/tbgers/tbgclient/pkg/session"
)

var loginPassword string

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in and save the session",
	Long: `Log in to the forum and save the session cookies so later commands
run as that member.

The username defaults to the configured one. The password is read from
--password, the configuration or TBG_PASSWORD, and prompted for otherwise.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Forget a saved session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the profile of the logged in member",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (prompted for when empty)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	username := cfg.Username
	if len(args) > 0 {
		username = args[0]
	}
	if username == "" {
		fmt.Fprint(out, "Username: ")
		line, _ := reader.ReadString('\n')
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return errors.New("no username given")
	}

	password := loginPassword
	if password == "" {
		password = cfg.Password
	}
	if password == "" {
		fmt.Fprintf(out, "Password for %s: ", username)
		line, _ := reader.ReadString('\n')
		password = strings.TrimSpace(line)
	}

	s := session.New(api.OptionsFromConfig(cfg))
	if err := s.Login(ctx, username, password); err != nil {
		return err
	}
	if err := s.Save(ctx, store); err != nil {
		return err
	}

	fmt.Fprintf(out, "Logged in as %s\n", username)
	if cfg.Username != username {
		fmt.Fprintf(out, "Set \"username\": %q in tbgclient.json or TBG_USERNAME to use this session by default.\n", username)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	username := cfg.Username
	if len(args) > 0 {
		username = args[0]
	}
	if !store.Exists(cmd.Context(), session.StorageKey(username)) {
		return fmt.Errorf("no saved session for %q", username)
	}
	if err := session.Forget(cmd.Context(), store, username); err != nil {
		return err
	}
	session.ClearDefault()
	fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s\n", username)
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	s, err := requireLogin(cmd)
	if err != nil {
		return err
	}
	me, err := forum.GetUser(cmd.Context(), s, 0)
	if err != nil {
		return err
	}
	return printUser(cmd.OutOrStdout(), me.Value())
}
