// Package commands provides the CLI commands for tbgclient.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbgers/tbgclient/internal/config"
	"github.com/tbgers/tbgclient/internal/logging"
	"github.com/tbgers/tbgclient/internal/storage"
	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/session"
	"github.com/tbgers/tbgclient/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
	jsonOut   bool
	workDir   string
)

// Loaded by the root command before any subcommand runs.
var (
	cfg   *types.Config
	store *storage.Storage
)

var rootCmd = &cobra.Command{
	Use:   "tbgclient",
	Short: "tbgclient - a client for the TBG forums",
	Long: `tbgclient reads and writes the Text-Based Games forums from the terminal.

Run 'tbgclient login' once to save a session, then read topics with
'tbgclient topic', post with 'tbgclient post' or join the chat with
'tbgclient chat'.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", "", "Directory holding tbgclient.json (default: current directory)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("tbgclient %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(topicCmd)
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

func setup(cmd *cobra.Command, args []string) error {
	dir, err := GetWorkDir(workDir)
	if err != nil {
		return err
	}
	cfg, err = config.Load(dir)
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Output = io.Discard
	if printLogs {
		logCfg.Output = cmd.ErrOrStderr()
		logCfg.Pretty = true
	}
	level := logLevel
	if cfg.Log != nil {
		if level == "" {
			level = cfg.Log.Level
		}
		logCfg.Pretty = logCfg.Pretty || cfg.Log.Pretty
		logCfg.LogToFile = cfg.Log.File
		logCfg.LogDir = cfg.Log.Dir
	}
	if logCfg.LogDir == "" {
		logCfg.LogDir = config.GetPaths().LogPath()
	}
	if level != "" {
		logCfg.Level = logging.ParseLevel(level)
	}
	logging.Init(logCfg)

	store = storage.New(config.GetPaths().StoragePath())
	return nil
}

// openSession creates the session of the configured user, restoring its
// saved cookies, and makes it the default. Without saved cookies the
// session is anonymous.
func openSession(cmd *cobra.Command) (*session.Session, error) {
	s := session.New(api.OptionsFromConfig(cfg))
	err := s.Restore(cmd.Context(), store, cfg.Username)
	switch {
	case err == nil:
		logging.Debug().Str("session", s.ID()).Str("user", s.Username()).Msg("Session restored")
	case errors.Is(err, storage.ErrNotFound):
		logging.Debug().Str("user", cfg.Username).Msg("No saved session")
	default:
		return nil, err
	}
	s.MakeDefault()
	return s, nil
}

// requireLogin is openSession for commands that only work logged in.
func requireLogin(cmd *cobra.Command) (*session.Session, error) {
	s, err := openSession(cmd)
	if err != nil {
		return nil, err
	}
	if !s.LoggedIn() {
		return nil, fmt.Errorf("not logged in: run 'tbgclient login' first")
	}
	return s, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
