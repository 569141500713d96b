package parser

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// decorations surround timestamps and edit notes.
const decorations = "«»\u00a0 \n\t"

// UserData is what a page reveals about a member. Zero values mean unknown.
type UserData struct {
	UID       int               `json:"uid,omitempty"`
	Name      string            `json:"name,omitempty"`
	Avatar    string            `json:"avatar,omitempty"`
	Group     string            `json:"group,omitempty"`
	Posts     int               `json:"posts,omitempty"`
	Signature string            `json:"signature,omitempty"`
	Email     string            `json:"email,omitempty"`
	Blurb     string            `json:"blurb,omitempty"`
	Location  string            `json:"location,omitempty"`
	RealName  string            `json:"realName,omitempty"`
	Social    map[string]string `json:"social,omitempty"`
	Website   string            `json:"website,omitempty"`
	Gender    string            `json:"gender,omitempty"`
}

// MessageData is a single post.
type MessageData struct {
	MID     int       `json:"mid"`
	TID     int       `json:"tid,omitempty"`
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`
	// DateText is the timestamp as displayed, kept when it could not be parsed.
	DateText string   `json:"dateText,omitempty"`
	Edited   string   `json:"edited,omitempty"`
	Content  string   `json:"content"`
	User     UserData `json:"user"`
	Icon     string   `json:"icon,omitempty"`
}

// ParseMessage parses one div#msgNNN of a topic page.
func ParseMessage(msg *goquery.Selection) (MessageData, error) {
	var data MessageData

	id, _ := msg.Attr("id")
	m := msgID.FindStringSubmatch(id)
	if m == nil {
		return data, fmt.Errorf("%w: message id in %q", ErrMissingElement, id)
	}
	data.MID = idFrom(msgID, id)

	wrapper := msg.Find("div.post_wrapper").First()
	if wrapper.Length() == 0 {
		return data, fmt.Errorf("%w: post wrapper of msg%d", ErrMissingElement, data.MID)
	}

	data.User = parsePoster(wrapper.Find("div.poster").First())

	edited := wrapper.Find("span.modified").First().Text()
	if i := strings.Index(edited, "Last Edit:"); i >= 0 {
		edited = edited[i+len("Last Edit:"):]
	}
	data.Edited = strings.Trim(edited, decorations)

	info := wrapper.Find("div.postinfo").First()
	if src, ok := info.Find("span.messageicon img").First().Attr("src"); ok {
		data.Icon = strings.TrimSuffix(path.Base(src), path.Ext(src))
	}

	title := info.Find("a.smalltext").First()
	data.Subject = title.AttrOr("title", "")
	data.DateText = strings.TrimSpace(title.Text())
	if t, ok := ParseDate(data.DateText); ok {
		data.Date = t
		data.DateText = ""
	}
	data.TID = idFrom(topicParam, title.AttrOr("href", ""))

	data.Content = innerHTML(wrapper.Find("div.post").First().Find("div").First())
	if sig := wrapper.Find("div.moderatorbar div.signature").First(); sig.Length() > 0 {
		data.User.Signature = innerHTML(sig)
	}

	return data, nil
}

func parsePoster(poster *goquery.Selection) UserData {
	name := poster.Find("h4 a").First()
	user := UserData{
		UID:  idFrom(userParam, name.AttrOr("href", "")),
		Name: strings.TrimSpace(name.Text()),
	}
	if user.Name == "" {
		// Guests have no profile link.
		user.Name = strings.TrimSpace(poster.Find("h4").First().Text())
	}

	info := poster.Find("ul.user_info").First()
	user.Avatar = info.Find("li.avatar img").First().AttrOr("src", "")
	user.Group = strings.TrimSpace(info.Find("li.postgroup").First().Text())
	if n, ok := ParseInteger(info.Find("li.postcount").First().Text()); ok {
		user.Posts = n
	}
	user.Blurb = strings.TrimSpace(info.Find("li.blurb").First().Text())
	user.Gender = info.Find(`li.im_icons li[class*="cust_gender"] span`).First().AttrOr("title", "")
	user.Website = info.Find("li.profile li a").First().AttrOr("href", "")
	if loc := info.Find(`li[class*="cust_loca"]`).First(); loc.Length() > 0 {
		user.Location = afterLabel(loc.Text())
	}
	return user
}

// ParseTopicContent parses the posts of a topic page.
func ParseTopicContent(content *goquery.Selection) ([]MessageData, error) {
	var (
		messages []MessageData
		err      error
	)
	content.Find("#forumposts div[id^=msg]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !msgID.MatchString(s.AttrOr("id", "")) {
			return true
		}
		var msg MessageData
		msg, err = ParseMessage(s)
		if err != nil {
			return false
		}
		messages = append(messages, msg)
		return true
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// ParseTopicPage parses a full topic page.
func ParseTopicPage(document string) (*PageData[MessageData], error) {
	return ParsePage(document, ParseTopicContent)
}

// FindMessage locates div#msgMID in a document, e.g. the page a ?msg= link
// resolves to.
func FindMessage(document string, mid int) (MessageData, error) {
	doc, err := Parse(document)
	if err != nil {
		return MessageData{}, err
	}
	sel := doc.Find(fmt.Sprintf("div#msg%d", mid)).First()
	if sel.Length() == 0 {
		return MessageData{}, fmt.Errorf("%w: msg%d", ErrMissingElement, mid)
	}
	msg, err := ParseMessage(sel)
	if err != nil {
		return msg, err
	}
	if msg.TID == 0 {
		// Fall back to the canonical link of the page.
		msg.TID = idFrom(topicParam, doc.Find(`link[rel="canonical"]`).AttrOr("href", ""))
	}
	return msg, nil
}

var socialLabels = map[string]string{
	"icq":             "icq",
	"skype":           "skype",
	"yahoo!":          "yim",
	"yahoo messenger": "yim",
	"aim":             "aim",
	"aol":             "aim",
	"msn":             "msn",
	"jabber":          "jabber",
	"discord":         "discord",
}

// ParseProfile parses the summary area of a profile (action=profile;u=N).
func ParseProfile(document string) (UserData, error) {
	doc, err := Parse(document)
	if err != nil {
		return UserData{}, err
	}

	view := doc.Find("#profileview").First()
	if view.Length() == 0 {
		return UserData{}, fmt.Errorf("%w: #profileview", ErrMissingElement)
	}

	var user UserData
	basic := view.Find("#basicinfo").First()
	heading := basic.Find("div.username h4").First()
	user.Group = strings.TrimSpace(heading.Find("span.position").Text())
	user.Name = strings.TrimSpace(heading.Clone().Children().Remove().End().Text())
	user.Avatar = basic.Find("img.avatar").First().AttrOr("src", "")
	user.Blurb = strings.TrimSpace(basic.Find(".blurb").First().Text())

	view.Find(`a[href*="u="]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		user.UID = idFrom(userParam, a.AttrOr("href", ""))
		return user.UID == 0
	})

	view.Find("#detailedinfo dl dt").Each(func(_ int, dt *goquery.Selection) {
		label := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(dt.Text()), ":"))
		dd := dt.NextFiltered("dd")
		value := strings.TrimSpace(dd.Text())
		switch label {
		case "username":
			if user.Name == "" {
				user.Name = value
			}
		case "posts":
			if n, ok := ParseInteger(strings.SplitN(value, "(", 2)[0]); ok {
				user.Posts = n
			}
		case "email":
			user.Email = value
		case "personal text":
			if user.Blurb == "" {
				user.Blurb = value
			}
		case "gender":
			user.Gender = value
		case "location":
			user.Location = value
		case "real name", "name":
			user.RealName = value
		case "website":
			user.Website = dd.Find("a").First().AttrOr("href", value)
		case "position", "membergroup":
			if user.Group == "" {
				user.Group = value
			}
		default:
			if key, ok := socialLabels[label]; ok && value != "" {
				if user.Social == nil {
					user.Social = make(map[string]string)
				}
				user.Social[key] = value
			}
		}
	})

	if sig := view.Find("div.signature").First(); sig.Length() > 0 {
		sig = sig.Clone()
		sig.Find("h5").Remove()
		user.Signature = innerHTML(sig)
	}

	return user, nil
}

// ParseSearchContent parses a search results page in the compact (non
// "show complete") layout.
func ParseSearchContent(content *goquery.Selection) ([]MessageData, error) {
	var results []MessageData
	content.Find("div.topic_details").Each(func(_ int, details *goquery.Selection) {
		link := details.Find("h5 a").Last()
		href := link.AttrOr("href", "")

		msg := MessageData{
			MID:     idFrom(msgParam, href),
			TID:     idFrom(topicParam, href),
			Subject: strings.TrimSpace(link.Text()),
		}

		by := details.Find("span.smalltext").First()
		poster := by.Find("a").First()
		msg.User = UserData{
			UID:  idFrom(userParam, poster.AttrOr("href", "")),
			Name: strings.TrimSpace(poster.Text()),
		}
		if msg.User.Name == "" {
			msg.User.Name = strings.TrimSpace(by.Find("strong").First().Text())
		}

		stamp := strings.Trim(by.Text(), decorations)
		if i := strings.LastIndex(stamp, " on "); i >= 0 {
			stamp = stamp[i+len(" on "):]
		}
		msg.DateText = strings.Trim(stamp, decorations)
		if t, ok := ParseDate(msg.DateText); ok {
			msg.Date = t
			msg.DateText = ""
		}

		msg.Content = innerHTML(details.Parent().Find("div.list_posts").First())
		results = append(results, msg)
	})
	return results, nil
}

// ParseSearchPage parses a full search results page.
func ParseSearchPage(document string) (*PageData[MessageData], error) {
	return ParsePage(document, ParseSearchContent)
}

// Alert kinds.
const (
	AlertMention  = "mention"
	AlertQuote    = "quote"
	AlertNewTopic = "new_topic"
	AlertUnknown  = "unknown"
)

// AlertData is one row of the alerts list.
type AlertData struct {
	AID       int       `json:"aid"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	Date      time.Time `json:"date"`
	User      UserData  `json:"user"`
	MID       int       `json:"mid,omitempty"`
	TID       int       `json:"tid,omitempty"`
	TopicName string    `json:"topicName,omitempty"`
	Unread    bool      `json:"unread,omitempty"`
}

// ParseAlertsContent parses the rows of action=profile;area=showalerts.
func ParseAlertsContent(content *goquery.Selection) ([]AlertData, error) {
	var alerts []AlertData
	content.Find(`tr[id^="alert_"]`).Each(func(_ int, row *goquery.Selection) {
		aid, ok := ParseInteger(row.AttrOr("id", ""))
		if !ok {
			return
		}
		textCell := row.Find("td.alert_text").First()
		body := textCell.Find("div").First()
		if body.Length() == 0 {
			body = textCell
		}

		alert := AlertData{
			AID:    aid,
			Text:   strings.Join(strings.Fields(body.Text()), " "),
			Unread: row.HasClass("highlight2") || row.Find(".new_posts").Length() > 0,
		}
		alert.Kind = classifyAlert(alert.Text)

		body.Find("a").Each(func(_ int, a *goquery.Selection) {
			href := a.AttrOr("href", "")
			switch {
			case strings.Contains(href, "action=profile") && alert.User.UID == 0:
				alert.User = UserData{UID: idFrom(userParam, href), Name: strings.TrimSpace(a.Text())}
			case strings.Contains(href, "msg") && alert.MID == 0:
				alert.MID = idFrom(msgParam, href)
				if tid := idFrom(topicParam, href); tid != 0 {
					alert.TID = tid
				}
				alert.TopicName = strings.TrimSpace(a.Text())
			case strings.Contains(href, "topic=") && alert.TID == 0:
				alert.TID = idFrom(topicParam, href)
				alert.TopicName = strings.TrimSpace(a.Text())
			}
		})

		if t, ok := ParseDate(textCell.Find(".alert_time").First().Text()); ok {
			alert.Date = t
		}
		alerts = append(alerts, alert)
	})
	return alerts, nil
}

// ParseAlertsPage parses a full alerts page.
func ParseAlertsPage(document string) (*PageData[AlertData], error) {
	return ParsePage(document, ParseAlertsContent)
}

func classifyAlert(text string) string {
	switch {
	case strings.Contains(text, "mentioned you"):
		return AlertMention
	case strings.Contains(text, "quoted"):
		return AlertQuote
	case strings.Contains(text, "started a new topic"):
		return AlertNewTopic
	default:
		return AlertUnknown
	}
}
