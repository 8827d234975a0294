// Package telegram wraps the Bot API client and feeds inbound messages
// onto the event bus.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/likeswap/likeswap/internal/bus"
)

// Adapter wraps the tgbotapi client and manages the long-poll update loop.
type Adapter struct {
	client *tgbotapi.BotAPI
	bus    *bus.Bus
	logger *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewAdapter authenticates with the Bot API using the given token.
func NewAdapter(token string, b *bus.Bus, logger *zap.Logger) (*Adapter, error) {
	client, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot client: %w", err)
	}
	client.Debug = false

	logger.Info("authorized with Telegram", zap.String("username", client.Self.UserName))

	return &Adapter{
		client: client,
		bus:    b,
		logger: logger,
	}, nil
}

// SelfUsername returns the bot's own username.
func (a *Adapter) SelfUsername() string {
	return a.client.Self.UserName
}

// Connect starts the long-poll update loop in the background. Each parsed
// inbound message is published as a "tg.message" event with an *Inbound
// payload.
func (a *Adapter) Connect() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.client.GetUpdatesChan(u)

	go func() {
		defer close(a.done)
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				inbound := ParseUpdate(&update)
				if inbound == nil {
					continue
				}
				a.logger.Debug("inbound message",
					zap.String("user", inbound.UserID),
					zap.Bool("private", inbound.Private))
				a.bus.Emit(bus.KindInboundMessage, inbound)
			}
		}
	}()

	return nil
}

// Disconnect stops the update loop and waits for it to drain.
func (a *Adapter) Disconnect() {
	if a.cancel == nil {
		return
	}
	a.client.StopReceivingUpdates()
	a.cancel()
	<-a.done
}

// Send delivers a direct message to the given user. Returns the platform
// message ID.
func (a *Adapter) Send(ctx context.Context, userID, text string) (string, error) {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse chat id %q: %w", userID, err)
	}
	msg, err := a.client.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return strconv.Itoa(msg.MessageID), nil
}
