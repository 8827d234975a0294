package telegram

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Inbound is a normalized incoming message ready for classification.
type Inbound struct {
	UserID      string
	Username    string
	DisplayName string
	Text        string
	MessageID   string
	GroupID     string
	GroupName   string
	Private     bool
	Timestamp   int64
}

// ParseUpdate normalizes a Bot API update. Returns nil for updates that
// carry no usable text message (edits, callbacks, media without captions,
// messages from other bots).
func ParseUpdate(update *tgbotapi.Update) *Inbound {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return nil
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	in := &Inbound{
		UserID:      strconv.FormatInt(msg.From.ID, 10),
		Username:    msg.From.UserName,
		DisplayName: displayName(msg.From),
		Text:        text,
		MessageID:   strconv.Itoa(msg.MessageID),
		Private:     msg.Chat.IsPrivate(),
		Timestamp:   int64(msg.Date) * 1000,
	}
	if !in.Private {
		in.GroupID = strconv.FormatInt(msg.Chat.ID, 10)
		in.GroupName = msg.Chat.Title
	}
	return in
}

func displayName(u *tgbotapi.User) string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
