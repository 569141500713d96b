package forum

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tbgers/tbgclient/internal/event"
	"github.com/tbgers/tbgclient/internal/logging"
	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/parser"
)

// User is a forum member. Zero fields are unknown.
type User struct {
	UID       int       `json:"uid,omitempty"`
	Name      string    `json:"name,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	Group     UserGroup `json:"group,omitempty"`
	Posts     int       `json:"posts,omitempty"`
	Signature string    `json:"signature,omitempty"`
	Email     string    `json:"email,omitempty"`
	Blurb     string    `json:"blurb,omitempty"`
	Location  string    `json:"location,omitempty"`
	RealName  string    `json:"realName,omitempty"`
	// Social maps a messenger ("jabber", "msn", "aim", "yim", ...) to the
	// member's handle on it.
	Social  map[string]string `json:"social,omitempty"`
	Website string            `json:"website,omitempty"`
	Gender  string            `json:"gender,omitempty"`
}

func userFromData(d parser.UserData) *User {
	return &User{
		UID:       d.UID,
		Name:      d.Name,
		Avatar:    d.Avatar,
		Group:     UserGroup(d.Group),
		Posts:     d.Posts,
		Signature: d.Signature,
		Email:     d.Email,
		Blurb:     d.Blurb,
		Location:  d.Location,
		RealName:  d.RealName,
		Social:    d.Social,
		Website:   d.Website,
		Gender:    d.Gender,
	}
}

// Update refreshes the user. The only method is "get".
func (u *User) Update(ctx context.Context, method string) (*User, error) {
	switch method {
	case "", "get":
		return u.Fetch(ctx)
	}
	return nil, notImplemented("user", method)
}

// Submit saves the user. The only method is "profile", which keeps the
// birthday on the form.
func (u *User) Submit(ctx context.Context, method string) (*User, error) {
	switch method {
	case "", "profile":
		return u.SubmitProfile(ctx, nil)
	}
	return nil, notImplemented("user", method)
}

// Fetch reads the profile of UID. A UID of 0 reads the profile of the
// session's own account.
func (u *User) Fetch(ctx context.Context) (*User, error) {
	_, c, err := client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.GetProfile(ctx, u.UID)
	if err != nil {
		return nil, err
	}
	if err := api.CheckErrors(http.MethodGet, resp); err != nil {
		return nil, err
	}
	data, err := parser.ParseProfile(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("profile %d: %w", u.UID, err)
	}
	return userFromData(data), nil
}

var genderIndex = map[string]int{
	"":           0,
	"none":       0,
	"male":       1,
	"female":     2,
	"non-binary": 3,
}

var socialFields = map[string]string{
	"jabber":           "cust_jabber",
	"msn":              "cust_msn",
	"msn messenger":    "cust_msn",
	"aim":              "cust_aolim",
	"aol im":           "cust_aolim",
	"yim":              "cust_yahoo",
	"yahoo! messenger": "cust_yahoo",
}

// SubmitProfile saves the forum profile of UID: avatar, personal text,
// signature, website, real name, location, messengers and gender. A nil
// birthday leaves the birthday unchanged.
//
// Signature must be BBCode. A signature read by Fetch is HTML and would be
// escaped by the forum.
func (u *User) SubmitProfile(ctx context.Context, birthday *time.Time) (*User, error) {
	if err := requireFields(field{"uid", u.UID != 0}); err != nil {
		return nil, err
	}
	gender, ok := genderIndex[strings.ToLower(u.Gender)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGender, u.Gender)
	}

	s, c, err := client(ctx)
	if err != nil {
		return nil, err
	}

	custom := map[string]string{
		"cust_real":   u.RealName,
		"cust_loca":   u.Location,
		"cust_gender": strconv.Itoa(gender),
	}
	for _, name := range socialFields {
		custom[name] = ""
	}
	for k, v := range u.Social {
		if name, ok := socialFields[strings.ToLower(k)]; ok {
			custom[name] = v
		}
	}

	edit := api.ProfileEdit{
		Blurb:     u.Blurb,
		Birthday:  birthday,
		Signature: u.Signature,
		// The website title is not shown on profiles, so the URL doubles as it.
		WebsiteTitle: u.Website,
		WebsiteURL:   u.Website,
		CustomFields: custom,
	}
	if u.Avatar != "" {
		edit.Avatar = &u.Avatar
	}

	resp, err := c.EditProfile(ctx, u.UID, edit)
	if err != nil {
		return nil, err
	}
	if err := api.CheckErrors(http.MethodPost, resp); err != nil {
		return nil, err
	}

	logging.Info().Str("session", s.ID()).Int("uid", u.UID).Msg("Profile updated")
	event.Publish(event.Event{
		Type: event.ProfileUpdated,
		Data: event.ProfileData{SessionID: s.ID(), UserID: u.UID},
	})
	return u, nil
}
