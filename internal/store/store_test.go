package store

import (
	"path/filepath"
	"testing"

	"github.com/likeswap/likeswap/internal/state"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testContact(t *testing.T, db *DB, userID string) *Contact {
	t.Helper()
	c := &Contact{
		Platform:         "telegram",
		UserID:           userID,
		Username:         "user_" + userID,
		Status:           state.ContactDiscovered,
		DiscoveredAt:     1000,
		ReliabilityScore: 50,
		PreferredTerms:   map[string]int{"likes": 5},
		Tags:             []string{"music"},
	}
	if err := db.CreateContact(c); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate; running it again must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestContactCreateAndGet(t *testing.T) {
	db := testDB(t)
	c := testContact(t, db, "u1")
	if c.ID == 0 {
		t.Fatal("CreateContact did not set ID")
	}

	got, err := db.GetContact("telegram", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("GetContact returned nil for existing contact")
	}
	if got.Username != "user_u1" || got.Status != state.ContactDiscovered {
		t.Errorf("got %+v", got)
	}
	if got.PreferredTerms["likes"] != 5 {
		t.Errorf("PreferredTerms = %v, want likes:5", got.PreferredTerms)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "music" {
		t.Errorf("Tags = %v, want [music]", got.Tags)
	}

	// Unknown contact is nil, not an error.
	missing, err := db.GetContact("telegram", "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("expected nil for unknown contact")
	}
}

func TestContactUpdate(t *testing.T) {
	db := testDB(t)
	c := testContact(t, db, "u1")

	c.Status = state.ContactContacted
	c.TotalExchanges = 3
	c.SuccessfulExchanges = 2
	c.FailedExchanges = 1
	c.ReliabilityScore = 70
	if err := db.UpdateContact(c); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetContactByID(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != state.ContactContacted || got.ReliabilityScore != 70 {
		t.Errorf("got %+v", got)
	}
	if got.TotalExchanges != got.SuccessfulExchanges+got.FailedExchanges {
		t.Errorf("count invariant broken: %d != %d + %d", got.TotalExchanges, got.SuccessfulExchanges, got.FailedExchanges)
	}
}

func TestContactUniquePerPlatform(t *testing.T) {
	db := testDB(t)
	testContact(t, db, "u1")

	dup := &Contact{Platform: "telegram", UserID: "u1", Status: state.ContactDiscovered}
	if err := db.CreateContact(dup); err == nil {
		t.Error("duplicate (platform, user_id) insert should fail")
	}

	// Same user id on another platform is a different contact.
	other := &Contact{Platform: "discord", UserID: "u1", Status: state.ContactDiscovered}
	if err := db.CreateContact(other); err != nil {
		t.Errorf("cross-platform insert failed: %v", err)
	}
}

func TestExchangeLifecycle(t *testing.T) {
	db := testDB(t)
	c := testContact(t, db, "u1")

	e := &Exchange{
		UUID:        "uuid-1",
		ContactID:   c.ID,
		InitiatedBy: "us",
		OurVideoURL: "https://youtu.be/ours",
		Terms:       map[string]int{"likes": 5, "subs": 1},
		Status:      state.ExchangeInitiated,
		InitiatedAt: 1000,
		TimeoutAt:   2000,
	}
	if err := db.CreateExchange(e); err != nil {
		t.Fatal(err)
	}

	active, err := db.ActiveExchangeForContact(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.UUID != "uuid-1" {
		t.Fatalf("active exchange = %+v, want uuid-1", active)
	}
	if active.Terms["likes"] != 5 {
		t.Errorf("Terms = %v", active.Terms)
	}

	e.Status = state.ExchangeCompleted
	e.CompletedAt = 3000
	e.OurResult = `{"actions":{"like":true}}`
	if err := db.UpdateExchange(e); err != nil {
		t.Fatal(err)
	}

	active, err = db.ActiveExchangeForContact(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Errorf("completed exchange still reported active: %+v", active)
	}

	got, err := db.GetExchangeByUUID("uuid-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.OurResult != `{"actions":{"like":true}}` {
		t.Errorf("OurResult = %q, result blob must be stored verbatim", got.OurResult)
	}
}

func TestExpiredExchanges(t *testing.T) {
	db := testDB(t)
	c := testContact(t, db, "u1")
	c2 := testContact(t, db, "u2")

	mk := func(uuid string, contactID int64, status state.ExchangeStatus, timeoutAt int64) {
		t.Helper()
		if err := db.CreateExchange(&Exchange{UUID: uuid, ContactID: contactID, InitiatedBy: "us", Status: status, TimeoutAt: timeoutAt}); err != nil {
			t.Fatal(err)
		}
	}
	mk("expired", c.ID, state.ExchangeInitiated, 1000)
	mk("future", c2.ID, state.ExchangeInitiated, 9000)

	expired, err := db.ExpiredExchanges(5000)
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 || expired[0].UUID != "expired" {
		t.Fatalf("expired = %+v, want [expired]", expired)
	}

	// A terminal exchange past its timeout is not reported.
	ex := expired[0]
	ex.Status = state.ExchangeNoResponse
	if err := db.UpdateExchange(&ex); err != nil {
		t.Fatal(err)
	}
	expired, err = db.ExpiredExchanges(5000)
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 0 {
		t.Errorf("terminal exchange still reported expired: %+v", expired)
	}
}

func TestConversationUpsertIsKeyedOnContact(t *testing.T) {
	db := testDB(t)
	c := testContact(t, db, "u1")

	cv := &Conversation{
		ContactID:      c.ID,
		ExchangeID:     1,
		State:          state.ConvWaitingResponse,
		ProposedTerms:  map[string]int{"likes": 5},
		Context:        map[string]string{"their_video": "https://youtu.be/x"},
		StateEnteredAt: 1000,
		ExpiresAt:      2000,
	}
	if err := db.UpsertConversation(cv); err != nil {
		t.Fatal(err)
	}

	// Second upsert replaces, does not duplicate.
	cv.State = state.ConvNegotiatingTerms
	cv.PrevState = state.ConvWaitingResponse
	if err := db.UpsertConversation(cv); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetConversation(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.State != state.ConvNegotiatingTerms || got.PrevState != state.ConvWaitingResponse {
		t.Fatalf("got %+v", got)
	}
	if got.Context["their_video"] != "https://youtu.be/x" {
		t.Errorf("Context = %v", got.Context)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM conversations WHERE contact_id = ?`, c.ID).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("conversation rows = %d, want 1 (at most one cursor per contact)", count)
	}
}

func TestConversationDeleteAndExpiry(t *testing.T) {
	db := testDB(t)
	c := testContact(t, db, "u1")

	cv := &Conversation{ContactID: c.ID, State: state.ConvWaitingResponse, ExpiresAt: 1000}
	if err := db.UpsertConversation(cv); err != nil {
		t.Fatal(err)
	}

	expired, err := db.ExpiredConversations(2000)
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 {
		t.Fatalf("expired = %d, want 1", len(expired))
	}

	if err := db.DeleteConversation(c.ID); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetConversation(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("conversation still present after delete")
	}

	// Deleting again is fine.
	if err := db.DeleteConversation(c.ID); err != nil {
		t.Errorf("second delete errored: %v", err)
	}
}

func TestConversationWithoutExpiryNeverExpires(t *testing.T) {
	db := testDB(t)
	c := testContact(t, db, "u1")

	cv := &Conversation{ContactID: c.ID, State: state.ConvWaitingExecution, ExpiresAt: 0}
	if err := db.UpsertConversation(cv); err != nil {
		t.Fatal(err)
	}
	expired, err := db.ExpiredConversations(1 << 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 0 {
		t.Errorf("expires_at=0 cursor reported expired: %+v", expired)
	}
}

func TestOutbox(t *testing.T) {
	db := testDB(t)

	if err := db.QueueDM("c1", "12345", "hello there"); err != nil {
		t.Fatal(err)
	}

	pending, err := db.PendingDMs()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ClientMsgID != "c1" {
		t.Fatalf("pending = %+v, want [c1]", pending)
	}

	if err := db.MarkDMSending("c1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkDMSent("c1", "tg-77"); err != nil {
		t.Fatal(err)
	}

	pending, err = db.PendingDMs()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending after sent, want 0", len(pending))
	}
}

func TestOutboxRequeue(t *testing.T) {
	db := testDB(t)

	if err := db.QueueDM("c1", "12345", "deferred"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkDMSending("c1"); err != nil {
		t.Fatal(err)
	}
	if err := db.RequeueDM("c1"); err != nil {
		t.Fatal(err)
	}

	pending, err := db.PendingDMs()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Errorf("requeued entry not pending again (got %d)", len(pending))
	}
}

func TestSendQuota(t *testing.T) {
	db := testDB(t)

	n, err := db.SendsOn("2026-08-29")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("fresh day count = %d, want 0", n)
	}

	for i := 0; i < 3; i++ {
		if err := db.IncrementSendsOn("2026-08-29"); err != nil {
			t.Fatal(err)
		}
	}
	n, err = db.SendsOn("2026-08-29")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	// Other days are independent buckets.
	n, err = db.SendsOn("2026-08-30")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("next day count = %d, want 0", n)
	}
}

func TestContactsReadyForRelaunch(t *testing.T) {
	db := testDB(t)

	mk := func(userID string, status state.ContactStatus, lastContact int64, score int) *Contact {
		t.Helper()
		c := &Contact{Platform: "telegram", UserID: userID, Status: status, LastContactAt: lastContact, ReliabilityScore: score}
		if err := db.CreateContact(c); err != nil {
			t.Fatal(err)
		}
		return c
	}

	idle := mk("idle", state.ContactUnresponsive, 1000, 60)
	mk("recent", state.ContactActiveSaved, 9000, 90)    // contacted too recently
	mk("lowscore", state.ContactUnresponsive, 1000, 10) // below floor
	mk("blocked", state.ContactBlocked, 1000, 90)       // wrong status
	busy := mk("busy", state.ContactResponded, 1000, 80)
	if err := db.CreateExchange(&Exchange{UUID: "busy-ex", ContactID: busy.ID, InitiatedBy: "us", Status: state.ExchangeAgreed}); err != nil {
		t.Fatal(err)
	}

	ready, err := db.ContactsReadyForRelaunch(40, 5000, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 1 || ready[0].ID != idle.ID {
		t.Fatalf("ready = %+v, want only the idle unresponsive contact", ready)
	}
}

func TestCountsByStatus(t *testing.T) {
	db := testDB(t)
	c := testContact(t, db, "u1")

	c.Status = state.ContactContacted
	if err := db.UpdateContact(c); err != nil {
		t.Fatal(err)
	}
	testContact(t, db, "u2")

	counts, err := db.CountContactsByStatus()
	if err != nil {
		t.Fatal(err)
	}
	if counts["contacted"] != 1 || counts["discovered"] != 1 {
		t.Errorf("counts = %v", counts)
	}

	if err := db.CreateExchange(&Exchange{UUID: "x", ContactID: c.ID, InitiatedBy: "us", Status: state.ExchangeInitiated}); err != nil {
		t.Fatal(err)
	}
	exCounts, err := db.CountExchangesByStatus()
	if err != nil {
		t.Fatal(err)
	}
	if exCounts["initiated"] != 1 {
		t.Errorf("exchange counts = %v", exCounts)
	}
}
