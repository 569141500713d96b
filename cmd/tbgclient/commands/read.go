package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tbgers/tbgclient/pkg/forum"
)

var (
	topicPage  int
	topicAll   bool
	readFormat string
	readSource bool
	alertsPage int
)

var topicCmd = &cobra.Command{
	Use:   "topic <tid>",
	Short: "Read a topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runTopic,
}

var messageCmd = &cobra.Command{
	Use:   "message <mid>",
	Short: "Read a single message",
	Long: `Read a single message.

With --source the subject and BBCode are read through the quote form
instead, which also works on locked topics.`,
	Args: cobra.ExactArgs(1),
	RunE: runMessage,
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List alerts of the logged in member",
	Args:  cobra.NoArgs,
	RunE:  runAlerts,
}

func init() {
	topicCmd.Flags().IntVar(&topicPage, "page", 1, "Page to read")
	topicCmd.Flags().BoolVar(&topicAll, "all", false, "Read every page")
	topicCmd.Flags().StringVar(&readFormat, "format", formatMarkdown, "Message format (html|markdown|text)")

	messageCmd.Flags().BoolVar(&readSource, "source", false, "Print the BBCode source")
	messageCmd.Flags().StringVar(&readFormat, "format", formatMarkdown, "Message format (html|markdown|text)")

	alertsCmd.Flags().IntVar(&alertsPage, "page", 1, "Page to read")
}

func parseID(kind, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}

func runTopic(cmd *cobra.Command, args []string) error {
	tid, err := parseID("topic", args[0])
	if err != nil {
		return err
	}
	if err := checkFormat(readFormat); err != nil {
		return err
	}
	if _, err := openSession(cmd); err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	topic := &forum.Topic{TID: tid}
	title := fmt.Sprintf("Topic %d", tid)

	if !topicAll {
		page, err := topic.Page(ctx, topicPage)
		if err != nil {
			return err
		}
		return printMessages(out, title, page, readFormat)
	}
	for page, err := range topic.All(ctx) {
		if err != nil {
			return err
		}
		if err := printMessages(out, title, page, readFormat); err != nil {
			return err
		}
	}
	return nil
}

func runMessage(cmd *cobra.Command, args []string) error {
	mid, err := parseID("message", args[0])
	if err != nil {
		return err
	}
	if err := checkFormat(readFormat); err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}

	method := "get"
	if readSource {
		method = "quotefast"
	}
	msg, err := forum.GetMessage(cmd.Context(), s, mid, method)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if readSource && !jsonOut {
		m := msg.Value()
		headerColor.Fprintf(out, "#%d %s\n", m.MID, m.Subject)
		fmt.Fprintln(out, m.Content)
		return nil
	}
	return printMessage(out, msg.Value(), readFormat)
}

func runAlerts(cmd *cobra.Command, args []string) error {
	if _, err := requireLogin(cmd); err != nil {
		return err
	}
	page, err := forum.AlertsPage(cmd.Context(), alertsPage)
	if err != nil {
		return err
	}
	return printAlerts(cmd.OutOrStdout(), page)
}
