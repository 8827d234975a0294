package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func groupUpdate(text string) *tgbotapi.Update {
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 42,
			Date:      1700000000,
			Text:      text,
			From: &tgbotapi.User{
				ID:        12345,
				UserName:  "promoter",
				FirstName: "Pat",
				LastName:  "Lee",
			},
			Chat: &tgbotapi.Chat{
				ID:    -100987,
				Type:  "supergroup",
				Title: "Sub4Sub Hub",
			},
		},
	}
}

func TestParseUpdateGroupMessage(t *testing.T) {
	in := ParseUpdate(groupUpdate("like4like anyone? https://youtu.be/abc"))
	if in == nil {
		t.Fatal("ParseUpdate returned nil for a text group message")
	}
	if in.UserID != "12345" {
		t.Errorf("UserID = %q", in.UserID)
	}
	if in.DisplayName != "Pat Lee" {
		t.Errorf("DisplayName = %q", in.DisplayName)
	}
	if in.Private {
		t.Error("group message marked private")
	}
	if in.GroupID != "-100987" || in.GroupName != "Sub4Sub Hub" {
		t.Errorf("group = %q %q", in.GroupID, in.GroupName)
	}
	if in.MessageID != "42" {
		t.Errorf("MessageID = %q", in.MessageID)
	}
	if in.Timestamp != 1700000000000 {
		t.Errorf("Timestamp = %d, want millis", in.Timestamp)
	}
}

func TestParseUpdatePrivateMessage(t *testing.T) {
	u := groupUpdate("yes, deal")
	u.Message.Chat = &tgbotapi.Chat{ID: 12345, Type: "private"}

	in := ParseUpdate(u)
	if in == nil {
		t.Fatal("ParseUpdate returned nil")
	}
	if !in.Private {
		t.Error("private chat not marked private")
	}
	if in.GroupID != "" {
		t.Errorf("GroupID = %q, want empty for private chat", in.GroupID)
	}
}

func TestParseUpdateCaptionFallback(t *testing.T) {
	u := groupUpdate("")
	u.Message.Caption = "check out my video https://youtu.be/abc"

	in := ParseUpdate(u)
	if in == nil {
		t.Fatal("caption-only message dropped")
	}
	if in.Text != "check out my video https://youtu.be/abc" {
		t.Errorf("Text = %q", in.Text)
	}
}

func TestParseUpdateDrops(t *testing.T) {
	if got := ParseUpdate(&tgbotapi.Update{}); got != nil {
		t.Error("update without message should parse to nil")
	}

	empty := groupUpdate("   ")
	if got := ParseUpdate(empty); got != nil {
		t.Error("whitespace-only message should parse to nil")
	}

	fromBot := groupUpdate("like4like")
	fromBot.Message.From.IsBot = true
	if got := ParseUpdate(fromBot); got != nil {
		t.Error("bot-authored message should parse to nil")
	}
}
