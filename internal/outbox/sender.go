// Package outbox drains queued direct messages through the platform
// adapter, enforcing the daily send cap and per-minute pacing.
package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/likeswap/likeswap/internal/bus"
	"github.com/likeswap/likeswap/internal/store"
)

// TextSender is the interface for delivering a direct message.
type TextSender interface {
	Send(ctx context.Context, userID string, text string) (platformMsgID string, err error)
}

// Sender drains the outbox and sends DMs via the platform adapter. Sends
// count against a persisted per-day quota so a restart cannot reset the cap.
type Sender struct {
	db       *store.DB
	sender   TextSender
	bus      *bus.Bus
	logger   *zap.Logger
	dailyCap int
	limiter  *rate.Limiter
	cancel   context.CancelFunc

	now func() time.Time
}

// NewSender creates a new outbox sender. dailyCap bounds sends per local
// calendar day; sendsPerMinute smooths the drain rate.
func NewSender(db *store.DB, sender TextSender, b *bus.Bus, logger *zap.Logger, dailyCap, sendsPerMinute int) *Sender {
	if sendsPerMinute <= 0 {
		sendsPerMinute = 6
	}
	return &Sender{
		db:       db,
		sender:   sender,
		bus:      b,
		logger:   logger,
		dailyCap: dailyCap,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(sendsPerMinute)), 1),
		now:      time.Now,
	}
}

// Start begins polling the outbox for pending messages.
func (s *Sender) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop stops the sender loop.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Sender) loop(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ProcessPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ProcessPending drains queued messages until the outbox is empty or the
// daily cap is reached. Capped messages stay queued for the next day.
func (s *Sender) ProcessPending(ctx context.Context) {
	pending, err := s.db.PendingDMs()
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return
	}

	for _, entry := range pending {
		day := s.now().Format("2006-01-02")
		sent, err := s.db.SendsOn(day)
		if err != nil {
			s.logger.Error("failed to read send quota", zap.Error(err))
			return
		}
		if s.dailyCap > 0 && sent >= s.dailyCap {
			s.logger.Info("daily send cap reached, deferring outbox",
				zap.Int("cap", s.dailyCap),
				zap.Int("queued", len(pending)))
			return
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		if err := s.db.MarkDMSending(entry.ClientMsgID); err != nil {
			s.logger.Error("failed to mark sending", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			continue
		}

		platformMsgID, err := s.sender.Send(ctx, entry.UserID, entry.Body)
		if err != nil {
			if ctx.Err() != nil {
				// Shutdown mid-send: put the entry back so it is not
				// recorded as a delivery failure.
				_ = s.db.RequeueDM(entry.ClientMsgID)
				return
			}
			s.logger.Error("failed to send DM", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			_ = s.db.MarkDMFailed(entry.ClientMsgID, err.Error())
			s.bus.Emit(bus.KindDMSendFailed, map[string]string{
				"client_msg_id": entry.ClientMsgID,
				"error":         err.Error(),
			})
			continue
		}

		if err := s.db.MarkDMSent(entry.ClientMsgID, platformMsgID); err != nil {
			s.logger.Error("failed to mark sent", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
		}
		if err := s.db.IncrementSendsOn(day); err != nil {
			s.logger.Error("failed to bump send quota", zap.Error(err))
		}

		s.logger.Info("DM sent",
			zap.String("client_msg_id", entry.ClientMsgID),
			zap.String("platform_msg_id", platformMsgID))
		s.bus.Emit(bus.KindDMSendAck, map[string]string{
			"client_msg_id":   entry.ClientMsgID,
			"platform_msg_id": platformMsgID,
		})
	}
}
