// Package orchestrator drives the contact and exchange lifecycles. It
// consumes inbound platform messages from the bus, runs the negotiation
// state machine under per-contact locks and hands agreed exchanges to the
// automation executor.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/likeswap/likeswap/internal/bus"
	"github.com/likeswap/likeswap/internal/classify"
	"github.com/likeswap/likeswap/internal/config"
	"github.com/likeswap/likeswap/internal/executor"
	"github.com/likeswap/likeswap/internal/lock"
	"github.com/likeswap/likeswap/internal/reliability"
	"github.com/likeswap/likeswap/internal/state"
	"github.com/likeswap/likeswap/internal/store"
	"github.com/likeswap/likeswap/internal/telegram"
)

const platformTelegram = "telegram"

// relaunchBatchSize caps how many dormant contacts one relaunch pass may
// re-engage, so a big backlog cannot flood the outbox in one tick.
const relaunchBatchSize = 10

// Orchestrator owns all lifecycle transitions. Every mutation of a
// contact's records happens while holding that contact's key lock.
type Orchestrator struct {
	db     *store.DB
	bus    *bus.Bus
	exec   executor.Executor
	cfg    *config.Config
	logger *zap.Logger
	locks  *lock.Keyed
	cancel context.CancelFunc

	execWG sync.WaitGroup
	now    func() time.Time
}

// New creates an orchestrator.
func New(db *store.DB, b *bus.Bus, exec executor.Executor, cfg *config.Config, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		db:     db,
		bus:    b,
		exec:   exec,
		cfg:    cfg,
		logger: logger,
		locks:  lock.NewKeyed(),
		now:    time.Now,
	}
}

// Start subscribes to inbound platform events on the bus.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)
	ch, unsub := o.bus.Subscribe("tg.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				o.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the event loop and waits for in-flight executions.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.execWG.Wait()
}

func (o *Orchestrator) handleEvent(ctx context.Context, evt bus.Event) {
	if evt.Kind != bus.KindInboundMessage {
		return
	}
	in, ok := evt.Payload.(*telegram.Inbound)
	if !ok {
		return
	}

	var err error
	if in.Private {
		err = o.HandlePrivateMessage(ctx, in)
	} else {
		err = o.HandleGroupMessage(ctx, in)
	}
	if err != nil {
		o.logger.Error("failed to handle inbound message",
			zap.Error(err),
			zap.String("user", in.UserID),
			zap.Bool("private", in.Private))
	}
}

func contactKey(platform, userID string) string {
	return platform + ":" + userID
}

// clampToDeadline caps a refreshed conversation expiry at the exchange
// deadline, so a chatty negotiation cannot outlive its exchange.
func clampToDeadline(expiresAt, timeoutAt int64) int64 {
	if timeoutAt > 0 && expiresAt > timeoutAt {
		return timeoutAt
	}
	return expiresAt
}

// queueDM enqueues an outgoing DM for the sender loop and announces it on
// the bus.
func (o *Orchestrator) queueDM(userID, body string) error {
	clientMsgID := uuid.NewString()
	if err := o.db.QueueDM(clientMsgID, userID, body); err != nil {
		return err
	}
	o.bus.Emit(bus.KindDMQueued, map[string]string{"client_msg_id": clientMsgID, "user_id": userID})
	return nil
}

// HandleGroupMessage classifies a group message and, when it expresses
// like4like intent, records the author as a contact and opens an exchange.
func (o *Orchestrator) HandleGroupMessage(ctx context.Context, in *telegram.Inbound) error {
	res := classify.Classify(in.Text)
	if !res.IsLike4Like {
		return nil
	}

	unlock := o.locks.Lock(contactKey(platformTelegram, in.UserID))
	defer unlock()

	now := o.now()
	c, err := o.db.GetContact(platformTelegram, in.UserID)
	if err != nil {
		return fmt.Errorf("get contact: %w", err)
	}

	if c == nil {
		c = &store.Contact{
			Platform:         platformTelegram,
			UserID:           in.UserID,
			Username:         in.Username,
			DisplayName:      in.DisplayName,
			Status:           state.ContactDiscovered,
			DiscoveredAt:     now.UnixMilli(),
			SourceGroupID:    in.GroupID,
			SourceGroupName:  in.GroupName,
			SourceMessage:    in.Text,
			SourceVideoURL:   res.YouTubeURLs[0],
			ReliabilityScore: reliability.Score(0, 0, 0),
			PreferredTerms:   res.Terms,
		}
		if err := o.db.CreateContact(c); err != nil {
			return fmt.Errorf("create contact: %w", err)
		}
		o.logger.Info("contact discovered",
			zap.String("user", in.UserID),
			zap.String("group", in.GroupName),
			zap.Float64("confidence", res.Confidence))
	} else {
		if c.Status == state.ContactBlocked {
			return nil
		}
		active, err := o.db.ActiveExchangeForContact(c.ID)
		if err != nil {
			return fmt.Errorf("check active exchange: %w", err)
		}
		if active != nil {
			o.logger.Debug("contact already has an active exchange, skipping",
				zap.String("user", in.UserID),
				zap.String("exchange", active.UUID))
			return nil
		}
		if len(res.Terms) > 0 {
			c.PreferredTerms = res.Terms
		}
	}

	if err := o.openExchange(c, res.YouTubeURLs[0], res.Terms, now); err != nil {
		return err
	}
	return nil
}

// openExchange creates an exchange and its conversation cursor, queues the
// proposal DM and moves the contact to contacted. Caller holds the contact
// lock.
func (o *Orchestrator) openExchange(c *store.Contact, theirVideoURL string, theirTerms map[string]int, now time.Time) error {
	terms := o.proposalTerms(theirTerms)

	e := &store.Exchange{
		UUID:          uuid.NewString(),
		ContactID:     c.ID,
		InitiatedBy:   "us",
		OurVideoURL:   o.cfg.Bot.OurVideoURL,
		TheirVideoURL: theirVideoURL,
		Terms:         terms,
		Status:        state.ExchangeInitiated,
		InitiatedAt:   now.UnixMilli(),
		TimeoutAt:     now.Add(o.cfg.Bot.ExchangeTimeout()).UnixMilli(),
	}
	if err := o.db.CreateExchange(e); err != nil {
		return fmt.Errorf("create exchange: %w", err)
	}

	cv := &store.Conversation{
		ContactID:      c.ID,
		ExchangeID:     e.ID,
		State:          state.ConvWaitingResponse,
		ProposedTerms:  terms,
		Context:        map[string]string{"their_video": theirVideoURL},
		StateEnteredAt: now.UnixMilli(),
		ExpiresAt:      now.Add(o.cfg.Bot.ResponseTimeout()).UnixMilli(),
	}
	if err := o.db.UpsertConversation(cv); err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	if err := o.queueDM(c.UserID, proposalText(o.cfg.Bot.OurVideoURL, terms)); err != nil {
		return fmt.Errorf("queue proposal: %w", err)
	}

	if state.ContactCanTransition(c.Status, state.ContactContacted) {
		c.Status = state.ContactContacted
	}
	if c.FirstContactAt == 0 {
		c.FirstContactAt = now.UnixMilli()
	}
	c.LastContactAt = now.UnixMilli()
	if err := o.db.UpdateContact(c); err != nil {
		return fmt.Errorf("update contact: %w", err)
	}

	o.logger.Info("exchange opened",
		zap.String("exchange", e.UUID),
		zap.String("user", c.UserID))
	o.bus.Emit(bus.KindExchangeUpdated, map[string]string{"uuid": e.UUID, "status": string(e.Status)})
	o.bus.Emit(bus.KindContactUpdated, map[string]string{"user_id": c.UserID, "status": string(c.Status)})
	return nil
}

// proposalTerms merges the partner's stated preferences over our defaults.
func (o *Orchestrator) proposalTerms(theirTerms map[string]int) map[string]int {
	terms := make(map[string]int, len(o.cfg.Bot.DefaultTerms))
	for k, v := range o.cfg.Bot.DefaultTerms {
		terms[k] = v
	}
	for k, v := range theirTerms {
		terms[k] = v
	}
	return terms
}

// HandlePrivateMessage advances a contact's negotiation from a direct reply.
// Replies from unknown contacts, contacts without an open conversation, or
// conversations already past expiry are dropped; both the conversation expiry
// and the exchange deadline are re-checked under the contact lock, so a late
// reply settles the records exactly as the sweep would instead of advancing
// a dead exchange.
func (o *Orchestrator) HandlePrivateMessage(ctx context.Context, in *telegram.Inbound) error {
	unlock := o.locks.Lock(contactKey(platformTelegram, in.UserID))
	defer unlock()

	now := o.now()
	c, err := o.db.GetContact(platformTelegram, in.UserID)
	if err != nil {
		return fmt.Errorf("get contact: %w", err)
	}
	if c == nil {
		o.logger.Debug("reply from unknown contact dropped", zap.String("user", in.UserID))
		return nil
	}
	if c.Status == state.ContactBlocked {
		return nil
	}

	cv, err := o.db.GetConversation(c.ID)
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	if cv == nil {
		o.logger.Debug("reply without open conversation dropped", zap.String("user", in.UserID))
		return nil
	}

	e, err := o.db.GetExchangeByID(cv.ExchangeID)
	if err != nil {
		return fmt.Errorf("get exchange: %w", err)
	}

	nowMs := now.UnixMilli()
	convExpired := cv.ExpiresAt > 0 && cv.ExpiresAt <= nowMs
	exchExpired := e != nil && !state.ExchangeTerminal(e.Status) &&
		e.TimeoutAt > 0 && e.TimeoutAt <= nowMs
	if convExpired || exchExpired {
		o.logger.Info("reply arrived after expiry, expiring in place",
			zap.String("user", in.UserID))
		if convExpired {
			if err := o.expireConversationLocked(c, cv, now); err != nil {
				return err
			}
		}
		if exchExpired {
			return o.expireExchangeLocked(c, e, now)
		}
		return nil
	}

	c.LastResponseAt = nowMs
	if state.ContactCanTransition(c.Status, state.ContactResponded) {
		c.Status = state.ContactResponded
	}
	if err := o.db.UpdateContact(c); err != nil {
		return fmt.Errorf("update contact: %w", err)
	}

	if e == nil || state.ExchangeTerminal(e.Status) {
		return o.db.DeleteConversation(c.ID)
	}

	switch cv.State {
	case state.ConvWaitingResponse, state.ConvNegotiatingTerms:
		return o.handleNegotiationReply(ctx, c, e, cv, in.Text, now)
	case state.ConvWaitingExecution:
		// Our side is still running; nothing to advance yet.
		o.logger.Debug("reply during execution ignored", zap.String("user", in.UserID))
		return nil
	case state.ConvVerifying:
		if claimsDone(in.Text) {
			o.spawnVerification(ctx, e.ID)
		}
		return nil
	}
	return nil
}

func (o *Orchestrator) handleNegotiationReply(ctx context.Context, c *store.Contact, e *store.Exchange, cv *store.Conversation, text string, now time.Time) error {
	res := classify.Classify(text)
	if len(res.YouTubeURLs) > 0 && e.TheirVideoURL == "" {
		e.TheirVideoURL = res.YouTubeURLs[0]
		if err := o.db.UpdateExchange(e); err != nil {
			return fmt.Errorf("update exchange: %w", err)
		}
		// If the video link was the one thing holding up an accepted
		// deal, this reply closes it.
		if cv.Context["awaiting_video"] != "" {
			delete(cv.Context, "awaiting_video")
			return o.agreeLocked(ctx, c, e, cv, now)
		}
	}

	switch {
	case isRejection(text):
		return o.failExchangeLocked(c, e, state.ExchangeFailed, now)

	case isAgreement(text):
		return o.agreeLocked(ctx, c, e, cv, now)

	case len(res.Terms) > 0 && !termsEqual(res.Terms, cv.ProposedTerms):
		// Counter-offer: adopt their numbers over ours and confirm back.
		for k, v := range res.Terms {
			cv.ProposedTerms[k] = v
		}
		cv.PrevState = cv.State
		cv.State = state.ConvNegotiatingTerms
		cv.StateEnteredAt = now.UnixMilli()
		cv.ExpiresAt = clampToDeadline(now.Add(o.cfg.Bot.ResponseTimeout()).UnixMilli(), e.TimeoutAt)
		if err := o.db.UpsertConversation(cv); err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}

		if state.ExchangeCanTransition(e.Status, state.ExchangeNegotiating) {
			e.Status = state.ExchangeNegotiating
		}
		e.Terms = cv.ProposedTerms
		if err := o.db.UpdateExchange(e); err != nil {
			return fmt.Errorf("update exchange: %w", err)
		}

		o.logger.Info("counter-offer received",
			zap.String("exchange", e.UUID),
			zap.Any("terms", cv.ProposedTerms))
		return o.queueDM(c.UserID, counterText(cv.ProposedTerms))

	case len(res.Terms) > 0:
		// They restated our terms; treat as acceptance.
		return o.agreeLocked(ctx, c, e, cv, now)

	default:
		// Unparseable reply: keep waiting, refresh the clock so an active
		// back-and-forth is not expired mid-thread.
		cv.ExpiresAt = clampToDeadline(now.Add(o.cfg.Bot.ResponseTimeout()).UnixMilli(), e.TimeoutAt)
		if err := o.db.UpsertConversation(cv); err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
		o.logger.Debug("unparsed negotiation reply",
			zap.String("exchange", e.UUID))
		return nil
	}
}

// agreeLocked moves an exchange to agreed and kicks off our side of the
// work. Caller holds the contact lock.
func (o *Orchestrator) agreeLocked(ctx context.Context, c *store.Contact, e *store.Exchange, cv *store.Conversation, now time.Time) error {
	if !state.ExchangeCanTransition(e.Status, state.ExchangeAgreed) {
		return nil
	}
	if e.TheirVideoURL == "" {
		// Cannot execute without a target video; ask for it and remember
		// that the deal is accepted pending the link.
		if cv.Context == nil {
			cv.Context = map[string]string{}
		}
		cv.Context["awaiting_video"] = "1"
		cv.ExpiresAt = clampToDeadline(now.Add(o.cfg.Bot.ResponseTimeout()).UnixMilli(), e.TimeoutAt)
		if err := o.db.UpsertConversation(cv); err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
		return o.queueDM(c.UserID, askVideoText())
	}

	e.Status = state.ExchangeAgreed
	e.AgreedAt = now.UnixMilli()
	e.Terms = cv.ProposedTerms
	if err := o.db.UpdateExchange(e); err != nil {
		return fmt.Errorf("update exchange: %w", err)
	}

	cv.PrevState = cv.State
	cv.State = state.ConvWaitingExecution
	cv.StateEnteredAt = now.UnixMilli()
	cv.ExpiresAt = e.TimeoutAt
	if err := o.db.UpsertConversation(cv); err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	if err := o.queueDM(c.UserID, confirmText(e.Terms)); err != nil {
		return fmt.Errorf("queue confirmation: %w", err)
	}

	o.logger.Info("exchange agreed",
		zap.String("exchange", e.UUID),
		zap.Any("terms", e.Terms))
	o.bus.Emit(bus.KindExchangeUpdated, map[string]string{"uuid": e.UUID, "status": string(e.Status)})

	o.spawnExecution(ctx, e.ID)
	return nil
}

func (o *Orchestrator) spawnExecution(ctx context.Context, exchangeID int64) {
	o.execWG.Add(1)
	go func() {
		defer o.execWG.Done()
		o.runExecution(ctx, exchangeID)
	}()
}

func (o *Orchestrator) spawnVerification(ctx context.Context, exchangeID int64) {
	o.execWG.Add(1)
	go func() {
		defer o.execWG.Done()
		o.runVerification(ctx, exchangeID)
	}()
}

// runExecution performs our side of an agreed exchange. The executor call
// runs without the contact lock held; the lock is re-taken to apply the
// outcome, and the records are re-read in case a reply or a sweep got there
// first.
func (o *Orchestrator) runExecution(ctx context.Context, exchangeID int64) {
	e, err := o.db.GetExchangeByID(exchangeID)
	if err != nil || e == nil {
		return
	}
	c, err := o.db.GetContactByID(e.ContactID)
	if err != nil || c == nil {
		return
	}

	execCtx, cancel := context.WithTimeout(ctx, o.cfg.Executor.Timeout())
	result, execErr := o.exec.Execute(execCtx, e.UUID, e.TheirVideoURL, e.Terms)
	cancel()

	unlock := o.locks.Lock(contactKey(c.Platform, c.UserID))
	defer unlock()

	// Re-read both records: a reply or a sweep may have advanced them while
	// the executor was running.
	now := o.now()
	c, err = o.db.GetContactByID(e.ContactID)
	if err != nil || c == nil {
		return
	}
	e, err = o.db.GetExchangeByID(exchangeID)
	if err != nil || e == nil || state.ExchangeTerminal(e.Status) {
		return
	}

	if result != nil {
		e.OurResult = encodeResult(result)
	}

	if execErr != nil || !result.Done(e.Terms) {
		o.logger.Error("execution failed",
			zap.Error(execErr),
			zap.String("exchange", e.UUID))
		if err := o.failExchangeLocked(c, e, state.ExchangeFailed, now); err != nil {
			o.logger.Error("failed to record execution failure", zap.Error(err))
		}
		return
	}

	// Our turn is only done once the executor confirms every action.
	if !state.ExchangeCanTransition(e.Status, state.ExchangeMyTurnDone) {
		return
	}
	e.Status = state.ExchangeMyTurnDone
	if err := o.db.UpdateExchange(e); err != nil {
		o.logger.Error("failed to update exchange", zap.Error(err))
		return
	}

	cv, err := o.db.GetConversation(c.ID)
	if err == nil && cv != nil {
		cv.PrevState = cv.State
		cv.State = state.ConvVerifying
		cv.StateEnteredAt = now.UnixMilli()
		cv.ExpiresAt = e.TimeoutAt
		_ = o.db.UpsertConversation(cv)
	}

	_ = o.queueDM(c.UserID, donePartText(o.cfg.Bot.OurVideoURL))
	o.logger.Info("our side executed",
		zap.String("exchange", e.UUID))
	o.bus.Emit(bus.KindExchangeUpdated, map[string]string{"uuid": e.UUID, "status": string(e.Status)})

	o.verifyLocked(ctx, c, e, now)
}

// runVerification re-checks the partner's side, typically after they claim
// to be done.
func (o *Orchestrator) runVerification(ctx context.Context, exchangeID int64) {
	e, err := o.db.GetExchangeByID(exchangeID)
	if err != nil || e == nil {
		return
	}
	c, err := o.db.GetContactByID(e.ContactID)
	if err != nil || c == nil {
		return
	}

	unlock := o.locks.Lock(contactKey(c.Platform, c.UserID))
	defer unlock()

	c, err = o.db.GetContactByID(e.ContactID)
	if err != nil || c == nil {
		return
	}
	e, err = o.db.GetExchangeByID(exchangeID)
	if err != nil || e == nil || e.Status != state.ExchangeMyTurnDone {
		return
	}
	o.verifyLocked(ctx, c, e, o.now())
}

// verifyLocked asks the executor whether the partner held up their side and
// completes the exchange if so. An inconclusive check leaves the exchange in
// my_turn_done; the timeout sweep settles it if the partner never delivers.
// Caller holds the contact lock.
func (o *Orchestrator) verifyLocked(ctx context.Context, c *store.Contact, e *store.Exchange, now time.Time) {
	verifyCtx, cancel := context.WithTimeout(ctx, o.cfg.Executor.Timeout())
	result, err := o.exec.Verify(verifyCtx, e.UUID, o.cfg.Bot.OurVideoURL, e.Terms)
	cancel()

	if result != nil {
		e.TheirResult = encodeResult(result)
	}
	if err != nil {
		o.logger.Warn("verification inconclusive",
			zap.Error(err),
			zap.String("exchange", e.UUID))
		_ = o.db.UpdateExchange(e)
		return
	}
	if !result.Done(e.Terms) {
		o.logger.Info("partner side not complete yet",
			zap.String("exchange", e.UUID))
		_ = o.db.UpdateExchange(e)
		return
	}

	if !state.ExchangeCanTransition(e.Status, state.ExchangeTheirTurnDone) {
		return
	}
	e.Status = state.ExchangeTheirTurnDone
	if err := o.db.UpdateExchange(e); err != nil {
		o.logger.Error("failed to update exchange", zap.Error(err))
		return
	}
	o.completeExchangeLocked(c, e, now)
}

// completeExchangeLocked finishes a both-sides-done exchange and credits the
// contact. Caller holds the contact lock.
func (o *Orchestrator) completeExchangeLocked(c *store.Contact, e *store.Exchange, now time.Time) {
	if !state.ExchangeCanTransition(e.Status, state.ExchangeCompleted) {
		return
	}
	e.Status = state.ExchangeCompleted
	e.CompletedAt = now.UnixMilli()
	if err := o.db.UpdateExchange(e); err != nil {
		o.logger.Error("failed to complete exchange", zap.Error(err))
		return
	}
	if err := o.db.DeleteConversation(c.ID); err != nil {
		o.logger.Error("failed to delete conversation", zap.Error(err))
	}

	c.SuccessfulExchanges++
	c.TotalExchanges++
	c.LastExchangeAt = now.UnixMilli()
	c.ReliabilityScore = reliability.Score(c.SuccessfulExchanges, c.FailedExchanges, c.TotalExchanges)
	if c.ReliabilityScore >= o.cfg.Bot.ActiveSavedMinScore &&
		c.SuccessfulExchanges >= 1 &&
		state.ContactCanTransition(c.Status, state.ContactActiveSaved) {
		c.Status = state.ContactActiveSaved
	}
	if err := o.db.UpdateContact(c); err != nil {
		o.logger.Error("failed to update contact", zap.Error(err))
		return
	}

	_ = o.queueDM(c.UserID, thanksText())
	o.logger.Info("exchange completed",
		zap.String("exchange", e.UUID),
		zap.String("user", c.UserID),
		zap.Int("score", c.ReliabilityScore))
	o.bus.Emit(bus.KindExchangeUpdated, map[string]string{"uuid": e.UUID, "status": string(e.Status)})
	o.bus.Emit(bus.KindContactUpdated, map[string]string{"user_id": c.UserID, "status": string(c.Status)})
}

// failExchangeLocked moves an exchange to a terminal failure status and
// debits the contact. Caller holds the contact lock.
func (o *Orchestrator) failExchangeLocked(c *store.Contact, e *store.Exchange, to state.ExchangeStatus, now time.Time) error {
	if !state.ExchangeCanTransition(e.Status, to) {
		return nil
	}
	e.Status = to
	e.CompletedAt = now.UnixMilli()
	if err := o.db.UpdateExchange(e); err != nil {
		return fmt.Errorf("update exchange: %w", err)
	}
	if err := o.db.DeleteConversation(c.ID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	c.FailedExchanges++
	c.TotalExchanges++
	c.LastExchangeAt = now.UnixMilli()
	c.ReliabilityScore = reliability.Score(c.SuccessfulExchanges, c.FailedExchanges, c.TotalExchanges)
	if err := o.db.UpdateContact(c); err != nil {
		return fmt.Errorf("update contact: %w", err)
	}

	o.logger.Info("exchange failed",
		zap.String("exchange", e.UUID),
		zap.String("status", string(to)),
		zap.Int("score", c.ReliabilityScore))
	o.bus.Emit(bus.KindExchangeUpdated, map[string]string{"uuid": e.UUID, "status": string(e.Status)})
	return nil
}

// Block marks a contact blocked, failing any active exchange. Used by the
// admin API.
func (o *Orchestrator) Block(contactID int64) error {
	c, err := o.db.GetContactByID(contactID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("contact %d not found", contactID)
	}

	unlock := o.locks.Lock(contactKey(c.Platform, c.UserID))
	defer unlock()

	c, err = o.db.GetContactByID(contactID)
	if err != nil || c == nil {
		return err
	}
	if c.Status == state.ContactBlocked {
		return nil
	}

	now := o.now()
	if e, err := o.db.ActiveExchangeForContact(c.ID); err == nil && e != nil {
		if err := o.failExchangeLocked(c, e, state.ExchangeFailed, now); err != nil {
			return err
		}
	}
	if err := o.db.DeleteConversation(c.ID); err != nil {
		return err
	}

	c.Status = state.ContactBlocked
	if err := o.db.UpdateContact(c); err != nil {
		return err
	}
	o.bus.Emit(bus.KindContactUpdated, map[string]string{"user_id": c.UserID, "status": string(c.Status)})
	return nil
}

func encodeResult(r *executor.Result) string {
	b, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(b)
}

func termsEqual(a, b map[string]int) bool {
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
