package event

import "time"

// SessionData is the data for session.* events.
type SessionData struct {
	SessionID string `json:"sessionID"`
	Username  string `json:"username,omitempty"`
}

// ForumMessageData is the data for forum.message.* events.
type ForumMessageData struct {
	SessionID string `json:"sessionID,omitempty"`
	TopicID   int    `json:"topicID"`
	MessageID int    `json:"messageID,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ProfileData is the data for forum.profile.updated events.
type ProfileData struct {
	SessionID string `json:"sessionID,omitempty"`
	UserID    int    `json:"userID"`
}

// ChatMessageData is the data for chat.message events.
type ChatMessageData struct {
	MessageID int       `json:"messageID"`
	ChannelID int       `json:"channelID"`
	UserID    int       `json:"userID"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Date      time.Time `json:"date"`
}

// ChatUsersData is the data for chat.users events.
type ChatUsersData struct {
	Users []string `json:"users"`
}
