package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/likeswap/likeswap/internal/bus"
	"github.com/likeswap/likeswap/internal/state"
	"github.com/likeswap/likeswap/internal/store"
)

// SweepExpired expires conversations and exchanges whose deadlines have
// passed. Each record is re-read under its contact's lock before being
// touched, so a reply being handled concurrently either already advanced the
// record (and the sweep skips it) or loses the lock race and finds it
// expired. Running the sweep twice over the same backlog is a no-op the
// second time.
func (o *Orchestrator) SweepExpired(now time.Time) {
	nowMs := now.UnixMilli()

	expired, err := o.db.ExpiredConversations(nowMs)
	if err != nil {
		o.logger.Error("failed to list expired conversations", zap.Error(err))
	} else {
		for _, cv := range expired {
			if err := o.expireConversation(cv.ContactID, nowMs); err != nil {
				o.logger.Error("failed to expire conversation",
					zap.Error(err),
					zap.Int64("contact_id", cv.ContactID))
			}
		}
	}

	stale, err := o.db.ExpiredExchanges(nowMs)
	if err != nil {
		o.logger.Error("failed to list expired exchanges", zap.Error(err))
		return
	}
	for _, e := range stale {
		if err := o.expireExchange(e.ID, now); err != nil {
			o.logger.Error("failed to expire exchange",
				zap.Error(err),
				zap.String("exchange", e.UUID))
		}
	}
}

func (o *Orchestrator) expireConversation(contactID, nowMs int64) error {
	c, err := o.db.GetContactByID(contactID)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	unlock := o.locks.Lock(contactKey(c.Platform, c.UserID))
	defer unlock()

	cv, err := o.db.GetConversation(contactID)
	if err != nil {
		return err
	}
	if cv == nil || cv.ExpiresAt == 0 || cv.ExpiresAt > nowMs {
		// Advanced or removed while we waited for the lock.
		return nil
	}
	return o.expireConversationLocked(c, cv, time.UnixMilli(nowMs))
}

// expireConversationLocked drops a conversation cursor whose deadline has
// passed and marks a never-responding contact unresponsive. Exchange
// bookkeeping is left to the exchange expiry path. Caller holds the contact
// lock.
func (o *Orchestrator) expireConversationLocked(c *store.Contact, cv *store.Conversation, now time.Time) error {
	if err := o.db.DeleteConversation(c.ID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	if c.Status == state.ContactContacted && state.ContactCanTransition(c.Status, state.ContactUnresponsive) {
		c.Status = state.ContactUnresponsive
		if err := o.db.UpdateContact(c); err != nil {
			return fmt.Errorf("update contact: %w", err)
		}
		o.bus.Emit(bus.KindContactUpdated, map[string]string{"user_id": c.UserID, "status": string(c.Status)})
	}

	o.logger.Info("conversation expired",
		zap.String("user", c.UserID),
		zap.String("state", string(cv.State)))
	o.bus.Emit(bus.KindExpiredConversation, map[string]string{"user_id": c.UserID})
	return nil
}

func (o *Orchestrator) expireExchange(exchangeID int64, now time.Time) error {
	e, err := o.db.GetExchangeByID(exchangeID)
	if err != nil {
		return err
	}
	if e == nil {
		return nil
	}
	c, err := o.db.GetContactByID(e.ContactID)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	unlock := o.locks.Lock(contactKey(c.Platform, c.UserID))
	defer unlock()

	e, err = o.db.GetExchangeByID(exchangeID)
	if err != nil {
		return err
	}
	if e == nil || state.ExchangeTerminal(e.Status) || e.TimeoutAt == 0 || e.TimeoutAt > now.UnixMilli() {
		return nil
	}

	return o.expireExchangeLocked(c, e, now)
}

// expireExchangeLocked settles a past-deadline exchange. An exchange where we
// delivered and they never did gets a distinct terminal status from one that
// simply went unanswered. Caller holds the contact lock.
func (o *Orchestrator) expireExchangeLocked(c *store.Contact, e *store.Exchange, now time.Time) error {
	to := state.ExchangeNoResponse
	if e.Status == state.ExchangeMyTurnDone {
		to = state.ExchangePartnerIncomplete
	}
	if err := o.failExchangeLocked(c, e, to, now); err != nil {
		return err
	}

	o.bus.Emit(bus.KindExpiredExchange, map[string]string{"uuid": e.UUID, "status": string(to)})
	return nil
}

// Relaunch re-engages dormant contacts that proved reliable enough. A
// contact qualifies when idle past the configured window, scored at or above
// the relaunch floor and free of active exchanges.
func (o *Orchestrator) Relaunch(now time.Time) {
	cutoff := now.Add(-time.Duration(o.cfg.Bot.RelaunchIdleDays) * 24 * time.Hour).UnixMilli()
	ready, err := o.db.ContactsReadyForRelaunch(o.cfg.Bot.RelaunchMinScore, cutoff, relaunchBatchSize)
	if err != nil {
		o.logger.Error("failed to list relaunch candidates", zap.Error(err))
		return
	}

	for _, c := range ready {
		if err := o.relaunchContact(c.ID, now); err != nil {
			o.logger.Error("failed to relaunch contact",
				zap.Error(err),
				zap.String("user", c.UserID))
		}
	}
}

func (o *Orchestrator) relaunchContact(contactID int64, now time.Time) error {
	c, err := o.db.GetContactByID(contactID)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	unlock := o.locks.Lock(contactKey(c.Platform, c.UserID))
	defer unlock()

	c, err = o.db.GetContactByID(contactID)
	if err != nil || c == nil {
		return err
	}
	if !state.ContactCanTransition(c.Status, state.ContactContacted) {
		return nil
	}
	if active, err := o.db.ActiveExchangeForContact(c.ID); err != nil || active != nil {
		return err
	}

	terms := o.proposalTerms(c.PreferredTerms)
	e := &store.Exchange{
		UUID:        uuid.NewString(),
		ContactID:   c.ID,
		InitiatedBy: "us",
		OurVideoURL: o.cfg.Bot.OurVideoURL,
		Terms:       terms,
		Status:      state.ExchangeInitiated,
		InitiatedAt: now.UnixMilli(),
		TimeoutAt:   now.Add(o.cfg.Bot.ExchangeTimeout()).UnixMilli(),
	}
	if err := o.db.CreateExchange(e); err != nil {
		return fmt.Errorf("create exchange: %w", err)
	}

	cv := &store.Conversation{
		ContactID:      c.ID,
		ExchangeID:     e.ID,
		State:          state.ConvWaitingResponse,
		ProposedTerms:  terms,
		StateEnteredAt: now.UnixMilli(),
		ExpiresAt:      now.Add(o.cfg.Bot.ResponseTimeout()).UnixMilli(),
	}
	if err := o.db.UpsertConversation(cv); err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	if err := o.queueDM(c.UserID, relaunchText(o.cfg.Bot.OurVideoURL, terms)); err != nil {
		return fmt.Errorf("queue relaunch DM: %w", err)
	}

	c.Status = state.ContactContacted
	c.LastContactAt = now.UnixMilli()
	if err := o.db.UpdateContact(c); err != nil {
		return fmt.Errorf("update contact: %w", err)
	}

	o.logger.Info("contact relaunched",
		zap.String("user", c.UserID),
		zap.String("exchange", e.UUID),
		zap.Int("score", c.ReliabilityScore))
	o.bus.Emit(bus.KindContactUpdated, map[string]string{"user_id": c.UserID, "status": string(c.Status)})
	return nil
}
