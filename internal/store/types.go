package store

import (
	"encoding/json"

	"github.com/likeswap/likeswap/internal/state"
)

// Timestamps are Unix milliseconds throughout; 0 means unset.

// Contact is a discovered counterparty on a messaging platform. Contacts are
// never deleted; they accumulate exchange history and a derived reliability
// score.
type Contact struct {
	ID          int64
	Platform    string
	UserID      string
	Username    string
	DisplayName string
	Status      state.ContactStatus

	// Discovery provenance.
	DiscoveredAt    int64
	SourceGroupID   string
	SourceGroupName string
	SourceMessage   string
	SourceVideoURL  string

	ReliabilityScore    int
	TotalExchanges      int
	SuccessfulExchanges int
	FailedExchanges     int

	FirstContactAt int64
	LastContactAt  int64
	LastResponseAt int64
	LastExchangeAt int64

	PreferredTerms  map[string]int
	ResponseTimeAvg int // minutes
	Notes           string
	Tags            []string
}

// Exchange is one reciprocal-promotion negotiation tied to exactly one contact.
type Exchange struct {
	ID          int64
	UUID        string
	ContactID   int64
	InitiatedBy string // "us" or "them"

	OurVideoURL   string
	TheirVideoURL string

	Terms  map[string]int
	Status state.ExchangeStatus

	// Execution result blobs, stored verbatim as JSON so partial results
	// survive for reporting. Empty string means no result yet.
	OurResult   string
	TheirResult string

	InitiatedAt int64
	AgreedAt    int64
	CompletedAt int64
	TimeoutAt   int64
}

// Conversation is the transient negotiation cursor, at most one per contact.
type Conversation struct {
	ID         int64
	ContactID  int64
	ExchangeID int64

	State     state.ConversationState
	PrevState state.ConversationState

	ProposedTerms map[string]int
	Context       map[string]string

	StateEnteredAt int64
	ExpiresAt      int64
}

// DMEntry is a pending or processed outgoing direct message.
type DMEntry struct {
	ID            int64
	ClientMsgID   string
	UserID        string
	Body          string
	Status        string // queued, sending, sent, failed
	ErrorMessage  string
	PlatformMsgID string
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func decodeTerms(s string) map[string]int {
	m := map[string]int{}
	if s != "" {
		_ = json.Unmarshal([]byte(s), &m)
	}
	return m
}

func decodeStringMap(s string) map[string]string {
	m := map[string]string{}
	if s != "" {
		_ = json.Unmarshal([]byte(s), &m)
	}
	return m
}

func decodeStrings(s string) []string {
	var out []string
	if s != "" {
		_ = json.Unmarshal([]byte(s), &out)
	}
	return out
}
