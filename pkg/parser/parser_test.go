package parser_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbgers/tbgclient/internal/forumtest"
	"github.com/tbgers/tbgclient/pkg/parser"
)

func seededForum() (*forumtest.Forum, int) {
	forum := forumtest.New()
	forum.AddUser(forumtest.User{
		UID:       3,
		Name:      "alice",
		Group:     "TBG Team",
		Avatar:    "https://example.com/alice.png",
		Blurb:     "Hello, world",
		Location:  "Moon",
		Gender:    "Female",
		Website:   "https://alice.example",
		Signature: "-- alice",
		Email:     "alice@example.com",
		RealName:  "Alice A.",
	})
	forum.AddUser(forumtest.User{UID: 4, Name: "bob"})
	tid, _ := forum.AddTopic(3, "Welcome", "first post")
	for i := 0; i < 40; i++ {
		forum.Reply(tid, 4, "Re: Welcome", fmt.Sprintf("reply %d", i))
	}
	return forum, tid
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"Posts: 1,234", 1234, true},
		{"42", 42, true},
		{"...", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		n, ok := parser.ParseInteger(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, n, tt.in)
	}
}

func TestParseDate(t *testing.T) {
	got, ok := parser.ParseDate(" Mar 01, 2024, 01:05:00 PM ")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.March, 1, 13, 5, 0, 0, time.Local), got)

	today, ok := parser.ParseDate("Today at 09:30:00 AM")
	require.True(t, ok)
	assert.Equal(t, 9, today.Hour())
	assert.Equal(t, time.Now().Day(), today.Day())

	_, ok = parser.ParseDate("sometime")
	assert.False(t, ok)
}

func TestCheckErrors_FatalError(t *testing.T) {
	forum := forumtest.New()
	err := parser.CheckErrors(forum.Get("topic=999.0"))

	var pageErr *parser.PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, "An Error Has Occurred!", pageErr.Title)
	assert.Contains(t, pageErr.Message, "missing or off limits")
	assert.Equal(t, "topic_gone", pageErr.ID)
	assert.Contains(t, pageErr.Error(), "(topic_gone)")
}

func TestCheckErrors_ErrorList(t *testing.T) {
	doc := `<html><body><div id="errors"><dl>
		<dt>The following error or errors occurred while posting this message:</dt>
		<dd>The message body was left empty.<br>The subject was left empty.<br></dd>
	</dl></div></body></html>`

	err := parser.CheckErrors(doc)
	var pageErr *parser.PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, "The message body was left empty.\nThe subject was left empty.", pageErr.Message)
	assert.True(t, strings.HasPrefix(pageErr.Error(), "The following error or errors occurred while posting this message:: \n"))
}

func TestCheckErrors_CleanPage(t *testing.T) {
	forum, tid := seededForum()
	assert.NoError(t, parser.CheckErrors(forum.Get(fmt.Sprintf("topic=%d.0", tid))))
}

func TestHiddenInputs(t *testing.T) {
	forum := forumtest.New()
	nonce, err := parser.HiddenInputs(forum.Get("action=login"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"hash_passwrd":      "",
		forumtest.NonceKey: forumtest.NonceValue,
	}, nonce)
}

func TestHiddenInputs_WrongFormCount(t *testing.T) {
	_, err := parser.HiddenInputs(`<form id="search"></form>`)
	assert.ErrorIs(t, err, parser.ErrFormCount)

	_, err = parser.HiddenInputs(`<form></form><form></form><form></form>`)
	assert.ErrorIs(t, err, parser.ErrFormCount)
}

func TestInputValue(t *testing.T) {
	v, ok := parser.InputValue(`<form><input name="bday1" value="14"></form>`, "bday1")
	assert.True(t, ok)
	assert.Equal(t, "14", v)

	_, ok = parser.InputValue(`<form></form>`, "bday1")
	assert.False(t, ok)
}

func TestParseTopicPage(t *testing.T) {
	forum, tid := seededForum()

	page, err := parser.ParseTopicPage(forum.Get(fmt.Sprintf("topic=%d.0", tid)))
	require.NoError(t, err)

	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Hierarchy, 3)
	assert.Equal(t, "Welcome", page.Hierarchy[2].Name)
	assert.Equal(t, fmt.Sprintf("/index.php?topic=%d.0", tid), page.Hierarchy[2].URL)
	require.Len(t, page.Contents, forumtest.PostsPerPage)

	first := page.Contents[0]
	assert.Equal(t, tid, first.TID)
	assert.Equal(t, "Welcome", first.Subject)
	assert.Equal(t, "first post", first.Content)
	assert.Equal(t, "xx", first.Icon)
	assert.Equal(t, "", first.Edited)
	assert.False(t, first.Date.IsZero())

	u := first.User
	assert.Equal(t, 3, u.UID)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, "TBG Team", u.Group)
	assert.Equal(t, 1, u.Posts)
	assert.Equal(t, "https://example.com/alice.png", u.Avatar)
	assert.Equal(t, "Hello, world", u.Blurb)
	assert.Equal(t, "Female", u.Gender)
	assert.Equal(t, "https://alice.example", u.Website)
	assert.Equal(t, "Moon", u.Location)
	assert.Equal(t, "-- alice", u.Signature)

	second := page.Contents[1]
	assert.Equal(t, "bob", second.User.Name)
	assert.Equal(t, 40, second.User.Posts)
	assert.Equal(t, "TBGer", second.User.Group)
}

func TestParseTopicPage_SecondPage(t *testing.T) {
	forum, tid := seededForum()

	page, err := parser.ParseTopicPage(forum.Get(fmt.Sprintf("topic=%d.%d", tid, forumtest.PostsPerPage)))
	require.NoError(t, err)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Contents, 41-forumtest.PostsPerPage)
}

func TestParsePage_NoPageLinks(t *testing.T) {
	doc := `<div class="navigate_section"><ul><li><a href="/"><span>Home</span></a></li></ul></div><div id="content_section"></div>`
	page, err := parser.ParsePage(doc, parser.ParseTopicContent)
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Contents)
	assert.Equal(t, []parser.Crumb{{Name: "Home", URL: "/"}}, page.Hierarchy)
}

func TestParsePage_MissingContent(t *testing.T) {
	_, err := parser.ParsePage("<html></html>", parser.ParseTopicContent)
	assert.ErrorIs(t, err, parser.ErrMissingElement)
}

func TestParseMessage_Edited(t *testing.T) {
	doc := `<div id="msg5"><div class="post_wrapper">
		<div class="poster"><h4>Guest</h4><ul class="user_info"></ul></div>
		<div class="postinfo"><a class="smalltext" href="index.php?topic=2.msg5#msg5" title="Hi">Today at 01:00:00 PM</a>
		<span class="smalltext modified">&#171; <em>Last Edit: Mar 02, 2024, 10:00:00 AM by Guest</em> &#187;</span></div>
		<div class="post"><div class="inner">body <b>bold</b></div></div>
	</div></div>`
	d, err := parser.Parse(doc)
	require.NoError(t, err)

	msg, err := parser.ParseMessage(d.Find("#msg5"))
	require.NoError(t, err)
	assert.Equal(t, 5, msg.MID)
	assert.Equal(t, 2, msg.TID)
	assert.Equal(t, "Guest", msg.User.Name)
	assert.Equal(t, 0, msg.User.UID)
	assert.Equal(t, "Mar 02, 2024, 10:00:00 AM by Guest", msg.Edited)
	assert.Equal(t, "body <b>bold</b>", msg.Content)
	assert.Equal(t, 13, msg.Date.Hour())
}

func TestParseMessage_BadID(t *testing.T) {
	d, err := parser.Parse(`<div id="message"></div>`)
	require.NoError(t, err)
	_, err = parser.ParseMessage(d.Find("div"))
	assert.ErrorIs(t, err, parser.ErrMissingElement)
}

func TestFindMessage(t *testing.T) {
	forum, tid := seededForum()
	mids := forum.Topic(tid)

	msg, err := parser.FindMessage(forum.Get(fmt.Sprintf("topic=%d.0", tid)), mids[2])
	require.NoError(t, err)
	assert.Equal(t, "reply 1", msg.Content)

	_, err = parser.FindMessage(forum.Get(fmt.Sprintf("topic=%d.0", tid)), mids[30])
	assert.ErrorIs(t, err, parser.ErrMissingElement)
}

func TestParseProfile(t *testing.T) {
	forum, _ := seededForum()

	u, err := parser.ParseProfile(forum.Get("action=profile;u=3"))
	require.NoError(t, err)
	assert.Equal(t, 3, u.UID)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, "TBG Team", u.Group)
	assert.Equal(t, 1, u.Posts)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "Hello, world", u.Blurb)
	assert.Equal(t, "Moon", u.Location)
	assert.Equal(t, "Alice A.", u.RealName)
	assert.Equal(t, "Female", u.Gender)
	assert.Equal(t, "https://alice.example", u.Website)
	assert.Equal(t, "https://example.com/alice.png", u.Avatar)
	assert.Equal(t, "-- alice", u.Signature)
}

func TestParseProfile_NotAProfile(t *testing.T) {
	forum, _ := seededForum()
	_, err := parser.ParseProfile(forum.Get("action=profile;u=99"))
	assert.ErrorIs(t, err, parser.ErrMissingElement)
}

func TestParseAlertsContent(t *testing.T) {
	doc := `<div id="content_section"><table id="alerts">
	<tr class="windowbg" id="alert_9">
		<td class="alert_text"><div><a href="/index.php?action=profile;u=4">bob</a> mentioned you in <a href="/index.php?topic=11.msg105#msg105">Re: Welcome</a></div>
		<span class="alert_time">Mar 01, 2024, 01:30:00 PM</span></td>
	</tr>
	<tr class="windowbg" id="alert_8">
		<td class="alert_text"><div><a href="/index.php?action=profile;u=5">carol</a> started a new topic <a href="/index.php?topic=12.0">News</a></div>
		<span class="alert_time">Mar 01, 2024, 01:00:00 PM</span></td>
	</tr>
	<tr class="windowbg" id="alert_7"><td class="alert_text"><div>Something else happened</div></td></tr>
	</table></div>`

	page, err := parser.ParsePage(doc, parser.ParseAlertsContent)
	require.NoError(t, err)
	require.Len(t, page.Contents, 3)

	mention := page.Contents[0]
	assert.Equal(t, 9, mention.AID)
	assert.Equal(t, parser.AlertMention, mention.Kind)
	assert.Equal(t, parser.UserData{UID: 4, Name: "bob"}, mention.User)
	assert.Equal(t, 105, mention.MID)
	assert.Equal(t, 11, mention.TID)
	assert.Equal(t, "Re: Welcome", mention.TopicName)
	assert.Equal(t, 30, mention.Date.Minute())

	topic := page.Contents[1]
	assert.Equal(t, parser.AlertNewTopic, topic.Kind)
	assert.Equal(t, 12, topic.TID)
	assert.Equal(t, 0, topic.MID)
	assert.Equal(t, "News", topic.TopicName)

	assert.Equal(t, parser.AlertUnknown, page.Contents[2].Kind)
}

func TestParseQuotefast(t *testing.T) {
	forum, tid := seededForum()
	mid := forum.Topic(tid)[0]

	doc := forum.Get(fmt.Sprintf("action=quotefast;quote=%d;modify;xml", mid))
	q, err := parser.ParseQuotefast([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, mid, q.MID)
	assert.Equal(t, "Welcome", q.Subject)
	assert.Equal(t, "first post", q.Content)
}

func TestParseQuotefast_Invalid(t *testing.T) {
	_, err := parser.ParseQuotefast([]byte("<html><body>oops"))
	assert.Error(t, err)
}

func TestParseChat(t *testing.T) {
	doc := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<root>
	<infos><info type="userID"><![CDATA[3]]></info><info type="channelID"><![CDATA[0]]></info></infos>
	<users><user userID="3" userRole="1" channelID="0"><![CDATA[alice]]></user></users>
	<messages>
		<message id="41" dateTime="Fri, 01 Mar 2024 13:00:00 +0000" userID="3" userRole="1" channelID="0"><username><![CDATA[alice]]></username><text><![CDATA[hi <b>there</b>]]></text></message>
		<message id="42" dateTime="Fri, 01 Mar 2024 13:01:00 +0000" userID="2147483647" userRole="4" channelID="0"><username><![CDATA[ChatBot]]></username><text><![CDATA[/login alice]]></text></message>
	</messages>
</root>`)

	resp, err := parser.ParseChat(doc)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"userID": "3", "channelID": "0"}, resp.Infos)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, parser.ChatUserData{UserID: 3, UserRole: 1, Name: "alice"}, resp.Users[0])
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, 41, resp.Messages[0].ID)
	assert.Equal(t, "hi <b>there</b>", resp.Messages[0].Text)
	assert.Equal(t, time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC), resp.Messages[0].Date.UTC())
	assert.Equal(t, "ChatBot", resp.Messages[1].Username)
}

func TestParseChat_BadDate(t *testing.T) {
	_, err := parser.ParseChat([]byte(`<root><messages><message id="1" dateTime="yesterday"><text>x</text></message></messages></root>`))
	assert.Error(t, err)
}
