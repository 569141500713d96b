package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tbgers/tbgclient/internal/event"
	"github.com/tbgers/tbgclient/internal/logging"
	"github.com/tbgers/tbgclient/pkg/chat"
	"github.com/tbgers/tbgclient/pkg/session"
)

var chatReadOnly bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Join the forum chat",
	Long: `Join the forum chat. New lines are printed as they arrive and every
line typed is sent; chat commands such as /me are passed through.

Type /exit or press Ctrl+D to leave. With --json every chat event is
printed as one JSON object per line instead.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatReadOnly, "read-only", false, "Only read, never send")
}

// Chat roles as reported by the chat server.
const (
	roleGuest = iota
	roleUser
	roleModerator
	roleAdmin
)

var roleColors = map[int]*color.Color{
	roleGuest:     color.New(color.Faint),
	roleUser:      color.New(color.FgGreen),
	roleModerator: color.New(color.FgYellow),
	roleAdmin:     color.New(color.FgRed, color.Bold),
}

func printChatLine(w io.Writer, m *chat.Message) {
	dimColor.Fprintf(w, "[%s] ", m.Date.Format("15:04:05"))
	c, ok := roleColors[m.Role]
	if !ok {
		c = nameColor
	}
	c.Fprintf(w, "%s", userName(m.User))
	fmt.Fprintf(w, ": %s\n", m.Content)
}

func runChat(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	if !s.LoggedIn() && !chatReadOnly {
		fmt.Fprintln(cmd.ErrOrStderr(), "Not logged in; reading only.")
		chatReadOnly = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := cmd.OutOrStdout()
	conn := chat.NewConnection()

	var onMessage func(*chat.Message)
	if jsonOut {
		stream, err := event.Stream(ctx)
		if err != nil {
			return err
		}
		go func() {
			for payload := range stream {
				fmt.Fprintln(out, string(payload))
			}
		}()
	} else {
		onMessage = func(m *chat.Message) { printChatLine(out, m) }
	}

	if !chatReadOnly {
		session.Go(ctx, func(ctx context.Context) {
			defer cancel()
			sendLines(ctx, cmd.InOrStdin(), conn, cmd.ErrOrStderr())
		})
	}

	err = conn.Run(ctx, cfg.PollInterval(), onMessage)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// sendLines sends every line read from in until /exit or EOF.
func sendLines(ctx context.Context, in io.Reader, conn *chat.Connection, errOut io.Writer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit":
			return
		}
		if err := conn.Send(ctx, line); err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Warn().Err(err).Msg("Chat send failed")
			fmt.Fprintf(errOut, "send failed: %v\n", err)
		}
	}
}
