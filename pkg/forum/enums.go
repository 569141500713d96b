package forum

import (
	"fmt"
	"strings"
)

// PostIcon is the icon shown next to a message subject.
type PostIcon string

const (
	IconStandard    PostIcon = "xx"
	IconThumbUp     PostIcon = "thumbup"
	IconThumbDown   PostIcon = "thumbdown"
	IconExclamation PostIcon = "exclamation"
	IconQuestion    PostIcon = "question"
	IconLamp        PostIcon = "lamp"
	IconSmiley      PostIcon = "smiley"
	IconAngry       PostIcon = "angry"
	IconCheesy      PostIcon = "cheesy"
	IconGrin        PostIcon = "grin"
	IconSad         PostIcon = "sad"
	IconWink        PostIcon = "wink"
	IconPoll        PostIcon = "poll"
	IconMoved       PostIcon = "moved"
	IconRecycled    PostIcon = "recycled"
	IconClip        PostIcon = "clip"
)

// UserGroup is a member group. Groups the forum adds later are kept as-is.
type UserGroup string

const (
	GroupTBGer                UserGroup = "TBGer"
	GroupTBGTeam              UserGroup = "TBG Team"
	GroupTBGAdministrator     UserGroup = "TBG Administrator"
	GroupWikiBureaucrats      UserGroup = "TBG Wiki Bureaucrats"
	GroupWikiAdministrators   UserGroup = "TBG Wiki Administrators"
	GroupTBGModerators        UserGroup = "TBG Moderators"
	GroupRetiredTBGModerators UserGroup = "Retired TBG Moderators"
)

// Known reports whether g is one of the groups above.
func (g UserGroup) Known() bool {
	switch g {
	case GroupTBGer, GroupTBGTeam, GroupTBGAdministrator, GroupWikiBureaucrats,
		GroupWikiAdministrators, GroupTBGModerators, GroupRetiredTBGModerators:
		return true
	}
	return false
}

// SearchType selects how the words of a query are matched.
type SearchType int

const (
	AllWords SearchType = 1
	AnyWords SearchType = 2
)

// SortBy is the search result ordering criterion.
type SortBy string

const (
	SortRelevance  SortBy = "relevance"
	SortNumReplies SortBy = "num_replies"
	SortID         SortBy = "id_msg"
)

// SortOrder is the search result direction.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// ParseSearchType accepts "all", "any" and their long forms.
func ParseSearchType(s string) (SearchType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "all_words", "1":
		return AllWords, nil
	case "any", "any_words", "2":
		return AnyWords, nil
	}
	return 0, fmt.Errorf("unknown search type %q", s)
}

// ParseSortBy accepts the criterion names used by the forum plus "replies"
// and "id".
func ParseSortBy(s string) (SortBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relevance":
		return SortRelevance, nil
	case "replies", "num_replies":
		return SortNumReplies, nil
	case "id", "id_msg":
		return SortID, nil
	}
	return "", fmt.Errorf("unknown sort criterion %q", s)
}

// ParseSortOrder accepts "asc" and "desc".
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}
