package outbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/likeswap/likeswap/internal/bus"
	"github.com/likeswap/likeswap/internal/store"
)

type mockSender struct {
	sent []string
	err  error
}

func (m *mockSender) Send(_ context.Context, userID, text string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, userID+":"+text)
	return "msg-1", nil
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testSender(t *testing.T, db *store.DB, ms *mockSender, dailyCap int) *Sender {
	t.Helper()
	s := NewSender(db, ms, bus.New(), zap.NewNop(), dailyCap, 6)
	// No pacing in tests.
	s.limiter = rate.NewLimiter(rate.Inf, 1)
	s.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local) }
	return s
}

func TestProcessPendingSends(t *testing.T) {
	db := testDB(t)
	ms := &mockSender{}
	s := testSender(t, db, ms, 50)

	if err := db.QueueDM("c1", "111", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := db.QueueDM("c2", "222", "hi there"); err != nil {
		t.Fatal(err)
	}

	s.ProcessPending(context.Background())

	if len(ms.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(ms.sent))
	}
	pending, err := db.PendingDMs()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("%d still pending after drain", len(pending))
	}

	n, err := db.SendsOn("2026-08-29")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("quota count = %d, want 2", n)
	}
}

func TestDailyCapDefersQueue(t *testing.T) {
	db := testDB(t)
	ms := &mockSender{}
	s := testSender(t, db, ms, 2)

	for _, id := range []string{"c1", "c2", "c3"} {
		if err := db.QueueDM(id, "111", "msg "+id); err != nil {
			t.Fatal(err)
		}
	}

	s.ProcessPending(context.Background())

	if len(ms.sent) != 2 {
		t.Fatalf("sent %d, want cap of 2", len(ms.sent))
	}
	pending, err := db.PendingDMs()
	if err != nil {
		t.Fatal(err)
	}
	// The capped message stays queued, not failed.
	if len(pending) != 1 || pending[0].ClientMsgID != "c3" {
		t.Errorf("pending = %+v, want [c3] deferred", pending)
	}

	// Next day the quota resets and the deferred message goes out.
	s.now = func() time.Time { return time.Date(2026, 8, 30, 0, 5, 0, 0, time.Local) }
	s.ProcessPending(context.Background())
	if len(ms.sent) != 3 {
		t.Errorf("sent %d after day rollover, want 3", len(ms.sent))
	}
}

func TestSendFailureMarksEntryAndPublishes(t *testing.T) {
	db := testDB(t)
	ms := &mockSender{err: errors.New("blocked by peer")}
	b := bus.New()
	s := NewSender(db, ms, b, zap.NewNop(), 50, 6)
	s.limiter = rate.NewLimiter(rate.Inf, 1)
	s.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local) }

	events, unsub := b.Subscribe("dm.", 4)
	defer unsub()

	if err := db.QueueDM("c1", "111", "hello"); err != nil {
		t.Fatal(err)
	}
	s.ProcessPending(context.Background())

	pending, err := db.PendingDMs()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Error("failed entry still pending")
	}
	n, err := db.SendsOn("2026-08-29")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("failed send counted against quota: %d", n)
	}

	select {
	case evt := <-events:
		if evt.Kind != bus.KindDMSendFailed {
			t.Errorf("event kind = %q, want %q", evt.Kind, bus.KindDMSendFailed)
		}
	case <-time.After(time.Second):
		t.Fatal("no failure event published")
	}
}
