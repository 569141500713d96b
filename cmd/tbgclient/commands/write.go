package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbgers/tbgclient/pkg/forum"
	"github.com/tbgers/tbgclient/pkg/session"
)

var (
	writeSubject string
	writeMessage string
	writeIcon    string
	editReason   string
	editDiff     bool
	editDryRun   bool
)

var postCmd = &cobra.Command{
	Use:   "post <tid>",
	Short: "Reply to a topic",
	Long: `Reply to a topic. The message is BBCode, read from --message or stdin.
The subject defaults to "Re: " and the topic name.`,
	Args: cobra.ExactArgs(1),
	RunE: runPost,
}

var editCmd = &cobra.Command{
	Use:   "edit <mid>",
	Short: "Edit a message",
	Long: `Replace the BBCode of a message with --message or stdin.

Use --diff to see what changes and --dry-run to stop before saving.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	for _, cmd := range []*cobra.Command{postCmd, editCmd} {
		cmd.Flags().StringVarP(&writeSubject, "subject", "s", "", "Message subject")
		cmd.Flags().StringVarP(&writeMessage, "message", "m", "", "Message BBCode (default: read stdin)")
		cmd.Flags().StringVar(&writeIcon, "icon", "", "Post icon (xx, thumbup, exclamation, ...)")
	}
	editCmd.Flags().StringVar(&editReason, "reason", "", "Edit reason")
	editCmd.Flags().BoolVar(&editDiff, "diff", false, "Print a diff of the change")
	editCmd.Flags().BoolVar(&editDryRun, "dry-run", false, "Do not save the edit")
}

func readContent(cmd *cobra.Command) (string, error) {
	if writeMessage != "" {
		return writeMessage, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return "", errors.New("empty message")
	}
	return content, nil
}

func runPost(cmd *cobra.Command, args []string) error {
	tid, err := parseID("topic", args[0])
	if err != nil {
		return err
	}
	content, err := readContent(cmd)
	if err != nil {
		return err
	}
	s, err := requireLogin(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	subject := writeSubject
	if subject == "" {
		topic, err := forum.GetTopic(ctx, s, tid, "get")
		if err != nil {
			return err
		}
		subject = "Re: " + topic.Value().Name
	}

	draft := &forum.Message{TID: tid, Subject: subject, Content: content, Icon: forum.PostIcon(writeIcon)}
	posted, err := session.Call(ctx, session.Wrap(s, draft), (*forum.Message).Post)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, posted)
	}
	if posted.MID != 0 {
		fmt.Fprintf(out, "Posted message %d in topic %d\n", posted.MID, tid)
	} else {
		fmt.Fprintf(out, "Posted in topic %d\n", tid)
	}
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	mid, err := parseID("message", args[0])
	if err != nil {
		return err
	}
	content, err := readContent(cmd)
	if err != nil {
		return err
	}
	s, err := requireLogin(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	// The page gives the topic, quotefast the BBCode being replaced.
	msg, err := forum.GetMessage(ctx, s, mid, "get")
	if err != nil {
		return err
	}
	msg, err = msg.Update(ctx, func(m *forum.Message, ctx context.Context) (*forum.Message, error) {
		return m.Update(ctx, "quotefast")
	})
	if err != nil {
		return err
	}
	before := msg.Value()

	after := *before
	after.Content = content
	if writeSubject != "" {
		after.Subject = writeSubject
	}
	if writeIcon != "" {
		after.Icon = forum.PostIcon(writeIcon)
	}

	out := cmd.OutOrStdout()
	if editDiff {
		d := diffSource(before.Content, after.Content)
		if d.empty() && after.Subject == before.Subject {
			fmt.Fprintln(out, "No changes")
			return nil
		}
		if after.Subject != before.Subject {
			delColor.Fprintf(out, "-subject: %s\n", before.Subject)
			addColor.Fprintf(out, "+subject: %s\n", after.Subject)
		}
		d.print(out)
	}
	if editDryRun {
		return nil
	}

	edited, err := session.Call(ctx, session.Wrap(s, &after), func(m *forum.Message, ctx context.Context) (*forum.Message, error) {
		return m.Edit(ctx, editReason)
	})
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(out, edited)
	}
	fmt.Fprintf(out, "Edited message %d\n", edited.MID)
	return nil
}
