package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbgers/tbgclient/pkg/forum"
)

var (
	searchMatch       string
	searchSort        string
	searchOrder       string
	searchUsers       []string
	searchBoards      []int
	searchPage        int
	searchComplete    bool
	searchSubjectOnly bool
	searchMaxAge      int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Search messages",
	Long: `Search the forum. Searches are slow; read one page at a time.

Examples:
  tbgclient search deck of cards
  tbgclient search --match any --user alice --sort id_msg --order asc werewolf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchMatch, "match", "all", "Match all or any of the words")
	searchCmd.Flags().StringVar(&searchSort, "sort", string(forum.SortRelevance), "Sort by relevance, num_replies or id_msg")
	searchCmd.Flags().StringVar(&searchOrder, "order", string(forum.Descending), "Sort order (asc|desc)")
	searchCmd.Flags().StringSliceVarP(&searchUsers, "user", "u", nil, "Only messages by these members")
	searchCmd.Flags().IntSliceVar(&searchBoards, "board", nil, "Boards to search (default: the public boards)")
	searchCmd.Flags().IntVar(&searchPage, "page", 1, "Result page")
	searchCmd.Flags().BoolVar(&searchComplete, "complete", false, "Show whole messages instead of excerpts")
	searchCmd.Flags().BoolVar(&searchSubjectOnly, "subject-only", false, "Only search subjects")
	searchCmd.Flags().IntVar(&searchMaxAge, "max-age", 0, "Only messages newer than this many days")
}

func buildSearch(words []string) (*forum.Search, error) {
	match, err := forum.ParseSearchType(searchMatch)
	if err != nil {
		return nil, err
	}
	sort, err := forum.ParseSortBy(searchSort)
	if err != nil {
		return nil, err
	}
	order, err := forum.ParseSortOrder(searchOrder)
	if err != nil {
		return nil, err
	}
	return &forum.Search{
		Query:       strings.Join(words, " "),
		Match:       match,
		Users:       searchUsers,
		Sort:        sort,
		Order:       order,
		Complete:    searchComplete,
		SubjectOnly: searchSubjectOnly,
		MaxAge:      searchMaxAge,
		Boards:      searchBoards,
	}, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	search, err := buildSearch(args)
	if err != nil {
		return err
	}
	if _, err := openSession(cmd); err != nil {
		return err
	}
	page, err := search.Page(cmd.Context(), searchPage)
	if err != nil {
		return err
	}
	return printMessages(cmd.OutOrStdout(), fmt.Sprintf("Search %q", search.Query), page, formatText)
}
