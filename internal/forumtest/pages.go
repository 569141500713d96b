package forumtest

import (
	"fmt"
	"html"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"
)

const dateFormat = "Jan 02, 2006, 03:04:05 PM"

var esc = html.EscapeString

type crumb struct{ name, href string }

type postView struct {
	Post
	Author User
	Posts  int
}

type alertView struct {
	Alert
	FromName string
	Subject  string
	Date     time.Time
}

// view must be called with f.mu held.
func (f *Forum) view(p *Post) postView {
	v := postView{Post: *p}
	if u, ok := f.users[p.UID]; ok {
		v.Author = *u
	} else {
		v.Author = User{Name: "Guest"}
	}
	for _, other := range f.posts {
		if other.UID == p.UID {
			v.Posts++
		}
	}
	return v
}

func layout(crumbs []crumb, content string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html><head><title>TBG Forums</title></head><body>
<div id="top_section"><form id="search_form" action="/index.php?action=search2" method="post"><input type="search" name="search"><input type="hidden" name="advanced" value="0"></form></div>
<div class="navigate_section"><ul>
<li><a href="/index.php"><span>The Trifecta Board Games Forums</span></a></li>`)
	for _, c := range crumbs {
		fmt.Fprintf(&b, "\n<li>\n <span class=\"dividers\"> &#9658; </span>\n <a href=\"%s\"><span>%s</span></a>\n</li>", esc(c.href), esc(c.name))
	}
	b.WriteString("\n</ul></div>\n<div id=\"content_section\">\n")
	b.WriteString(content)
	b.WriteString("\n</div>\n</body></html>")
	return b.String()
}

func fatalPage(msg, id string) string {
	return fmt.Sprintf(`<div id="fatal_error">
	<div class="cat_bar"><h3 class="catbg">An Error Has Occurred!</h3></div>
	<div class="windowbg">
		<div class="padding" id="%s">%s</div>
	</div>
</div>`, esc(id), esc(msg))
}

func errorList(title string, lines ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<div class=\"errorbox\" id=\"errors\">\n<dl>\n<dt><strong>%s</strong></dt>\n<dd>", esc(title))
	for _, l := range lines {
		fmt.Fprintf(&b, "\n%s<br>", esc(l))
	}
	b.WriteString("\n</dd>\n</dl>\n</div>")
	return b.String()
}

func hiddenInputs(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "<input type=\"hidden\" name=\"%s\" value=\"%s\">\n", esc(k), esc(values[k]))
	}
	fmt.Fprintf(&b, "<input type=\"hidden\" name=\"%s\" value=\"%s\">", NonceKey, NonceValue)
	return b.String()
}

func loginForm(user string) string {
	return fmt.Sprintf(`<form action="/index.php?action=login2" name="frmLogin" id="frmLogin" method="post">
<input type="text" name="user" value="%s">
<input type="password" name="passwrd">
<select name="cookielength"><option value="3153600">Forever</option></select>
%s
</form>`, esc(user), hiddenInputs(map[string]string{"hash_passwrd": ""}))
}

func postForm(hidden map[string]string) string {
	return fmt.Sprintf(`<form action="/index.php?action=post2" method="post" id="postmodify" name="postmodify">
<input type="text" name="subject">
<textarea name="message"></textarea>
%s
</form>`, hiddenInputs(hidden))
}

func profileForm(u User) string {
	return fmt.Sprintf(`<form action="/index.php?action=profile;area=forumprofile;u=%d;save" method="post" id="creator" name="creator">
<input type="text" name="personal_text" value="%s">
<input type="text" name="bday3" size="4" maxlength="4" value="%s"> -
<input type="text" name="bday1" size="2" maxlength="2" value="%s"> -
<input type="text" name="bday2" size="2" maxlength="2" value="%s">
<textarea name="signature">%s</textarea>
%s
</form>`, u.UID, esc(u.Blurb), esc(u.Birthday[2]), esc(u.Birthday[0]), esc(u.Birthday[1]), esc(u.Signature),
		hiddenInputs(map[string]string{"u": fmt.Sprint(u.UID)}))
}

func pageLinks(href string, current, total int) string {
	var b strings.Builder
	b.WriteString(`<div class="pagesection"><div class="pagelinks floatleft"><a href="#bot" class="button">Go Down</a> <span class="pages">Pages</span>`)
	for i := 1; i <= total; i++ {
		if i == current {
			fmt.Fprintf(&b, ` <span class="current_page">%d</span>`, i)
		} else {
			fmt.Fprintf(&b, ` <a class="nav_page" href="%s%d">%d</a>`, esc(href), i-1, i)
		}
	}
	b.WriteString("</div></div>")
	return b.String()
}

func topicPage(tid, current, total int, posts []postView) string {
	var b strings.Builder
	b.WriteString(pageLinks(fmt.Sprintf("/index.php?topic=%d.", tid), current, total))
	b.WriteString("\n<div id=\"forumposts\"><form action=\"/index.php?action=quickmod2\" method=\"post\" name=\"quickModForm\" id=\"quickModForm\">")
	for _, p := range posts {
		b.WriteString(postHTML(p))
	}
	b.WriteString("</form></div>")
	return b.String()
}

func postHTML(p postView) string {
	u := p.Author
	var info strings.Builder
	if u.Avatar != "" {
		fmt.Fprintf(&info, "<li class=\"avatar\"><a href=\"/index.php?action=profile;u=%d\"><img class=\"avatar\" src=\"%s\" alt=\"\"></a></li>\n", u.UID, esc(u.Avatar))
	}
	fmt.Fprintf(&info, "<li class=\"membergroup\"></li>\n<li class=\"postgroup\">%s</li>\n<li class=\"postcount\">Posts: %s</li>\n",
		esc(u.Group), withCommas(p.Posts))
	if u.Blurb != "" {
		fmt.Fprintf(&info, "<li class=\"blurb\">%s</li>\n", esc(u.Blurb))
	}
	if u.Gender != "" {
		fmt.Fprintf(&info, "<li class=\"im_icons\"><ol><li class=\"custom cust_gender\"><span class=\" main_icons gender_0\" title=\"%s\"></span></li></ol></li>\n", esc(u.Gender))
	}
	if u.Website != "" {
		fmt.Fprintf(&info, "<li class=\"profile\"><ol class=\"profile_icons\"><li><a href=\"%s\" title=\"Website\"><span class=\"main_icons www\"></span></a></li></ol></li>\n", esc(u.Website))
	}
	if u.Location != "" {
		fmt.Fprintf(&info, "<li class=\"custom cust_loca\">Location: %s</li>\n", esc(u.Location))
	}

	name := esc(u.Name)
	if u.UID != 0 {
		name = fmt.Sprintf("<a href=\"/index.php?action=profile;u=%d\" title=\"View the profile of %s\">%s</a>", u.UID, esc(u.Name), esc(u.Name))
	}

	edited := ""
	if p.Edited != "" {
		edited = "&#171; <em>Last Edit: " + esc(p.Edited) + " by " + esc(u.Name) + "</em> &#187;"
	}
	signature := ""
	if u.Signature != "" {
		signature = "<div class=\"signature\" id=\"msg_" + fmt.Sprint(p.MID) + "_signature\">" + esc(u.Signature) + "</div>"
	}

	return fmt.Sprintf(`
<div class="windowbg" id="msg%d">
	<div class="post_wrapper">
		<div class="poster">
			<h4>%s</h4>
			<ul class="user_info">
%s			</ul>
		</div>
		<div class="postarea">
			<div class="keyinfo">
				<div class="postinfo">
					<span class="messageicon"><img src="https://tbgforums.com/forums/Themes/default/images/post/%s.png" alt=""></span>
					<a href="/index.php?topic=%d.msg%d#msg%d" title="%s" class="smalltext">%s</a>
					<span class="spacer"></span>
					<span class="smalltext modified floatright" id="modified_%d">%s</span>
				</div>
			</div>
			<div class="post">
				<div class="inner" data-msgid="%d" id="msg_%d">%s</div>
			</div>
		</div>
		<div class="moderatorbar">
			%s
		</div>
	</div>
</div>`, p.MID, name, info.String(), esc(p.Icon), p.TID, p.MID, p.MID, esc(p.Subject), p.Date.Format(dateFormat),
		p.MID, edited, p.MID, p.MID, p.Body, signature)
}

func withCommas(n int) string {
	s := fmt.Sprint(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

var customLabels = map[string]string{
	"cust_jabber": "Jabber",
	"cust_msn":    "MSN",
	"cust_aolim":  "AIM",
	"cust_yahoo":  "Yahoo!",
}

func profilePage(u User, posts int) string {
	var dl strings.Builder
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&dl, "<dt>%s: </dt>\n<dd>%s</dd>\n", label, value)
		}
	}
	row("Username", esc(u.Name))
	row("Posts", withCommas(posts)+" (0.5 per day)")
	row("Email", esc(u.Email))
	row("Gender", esc(u.Gender))
	row("Location", esc(u.Location))
	row("Real Name", esc(u.RealName))
	if u.Website != "" {
		row("Website", fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, esc(u.Website), esc(u.Website)))
	}
	for _, k := range slices.Sorted(maps.Keys(u.Custom)) {
		if label, ok := customLabels[k]; ok {
			row(label, esc(u.Custom[k]))
		}
	}

	avatar := ""
	if u.Avatar != "" {
		avatar = fmt.Sprintf(`<img class="avatar" src="%s" alt="">`, esc(u.Avatar))
	}
	blurb := ""
	if u.Blurb != "" {
		blurb = fmt.Sprintf(`<span class="blurb">%s</span>`, esc(u.Blurb))
	}
	signature := ""
	if u.Signature != "" {
		signature = fmt.Sprintf(`<div class="signature"><h5>Signature:</h5>%s</div>`, esc(u.Signature))
	}

	return fmt.Sprintf(`<div id="profileview" class="roundframe flow_auto">
	<div id="basicinfo">
		<div class="username clear"><h4>%s<span class="position">%s</span></h4></div>
		%s
		%s
		<a href="/index.php?action=profile;area=showposts;u=%d" class="infolinks">Show posts</a>
	</div>
	<div id="detailedinfo">
		<dl class="settings">
%s		</dl>
		%s
	</div>
</div>`, esc(u.Name), esc(u.Group), avatar, blurb, u.UID, dl.String(), signature)
}

func searchPage(current, total int, results []postView) string {
	var b strings.Builder
	b.WriteString(pageLinks("/index.php?action=search2;start=", current, total))
	for i, p := range results {
		fmt.Fprintf(&b, `
<div class="windowbg">
	<div class="block">
		<div class="topic_details">
			<div class="counter">%d</div>
			<h5><a href="/index.php?board=1.0">General Discussion</a> / <a href="/index.php?topic=%d.msg%d#msg%d">%s</a></h5>
			<span class="smalltext">&#171;&nbsp;by&nbsp;<strong><a href="/index.php?action=profile;u=%d">%s</a></strong> on <em>%s</em>&nbsp;&#187;</span>
		</div>
		<div class="list_posts double_height">%s</div>
	</div>
</div>`, i+1, p.TID, p.MID, p.MID, esc(p.Subject), p.Author.UID, esc(p.Author.Name), p.Date.Format(dateFormat), p.Body)
	}
	return b.String()
}

func alertsPage(rows []alertView) string {
	var b strings.Builder
	b.WriteString(`<div class="cat_bar"><h3 class="catbg">Alerts</h3></div>
<table id="alerts" class="table_grid">`)
	for _, a := range rows {
		link := fmt.Sprintf(`<a href="/index.php?topic=%d.msg%d#msg%d">%s</a>`, a.TID, a.MID, a.MID, esc(a.Subject))
		fmt.Fprintf(&b, `
	<tr class="windowbg" id="alert_%d">
		<td class="alert_image"><span class="main_icons mention"></span></td>
		<td class="alert_text">
			<div><a href="/index.php?action=profile;u=%d">%s</a> %s %s</div>
			<span class="alert_time">%s</span>
		</td>
		<td class="alert_buttons"></td>
	</tr>`, a.AID, a.From, esc(a.FromName), esc(a.Verb), link, a.Date.Format(dateFormat))
	}
	b.WriteString("\n</table>")
	return b.String()
}

func chatXML(uid int, loggedIn bool, names map[int]string, lines []ChatLine) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<root>\n<infos>")
	if loggedIn {
		fmt.Fprintf(&b, "<info type=\"userID\"><![CDATA[%d]]></info><info type=\"userName\"><![CDATA[%s]]></info>", uid, names[uid])
	}
	b.WriteString("<info type=\"channelID\"><![CDATA[0]]></info></infos>\n<users>")
	if loggedIn {
		fmt.Fprintf(&b, "<user userID=\"%d\" userRole=\"1\" channelID=\"0\"><![CDATA[%s]]></user>", uid, names[uid])
	}
	b.WriteString("</users>\n<messages>")
	for _, l := range lines {
		fmt.Fprintf(&b, "\n<message id=\"%d\" dateTime=\"%s\" userID=\"%d\" userRole=\"1\" channelID=\"0\"><username><![CDATA[%s]]></username><text><![CDATA[%s]]></text></message>",
			l.ID, l.Date.Format(time.RFC1123Z), l.UserID, names[l.UserID], l.Text)
	}
	b.WriteString("\n</messages>\n</root>")
	return b.String()
}
