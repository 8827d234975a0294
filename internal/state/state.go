// Package state defines the lifecycle enums for contacts, exchanges and
// conversations, plus the allowed transitions between them. All status
// strings are stored verbatim in SQLite, so changing a constant is a schema
// migration.
package state

import "slices"

// ContactStatus represents where a contact stands in the outreach lifecycle.
type ContactStatus string

const (
	ContactDiscovered   ContactStatus = "discovered"
	ContactContacted    ContactStatus = "contacted"
	ContactResponded    ContactStatus = "responded"
	ContactActiveSaved  ContactStatus = "active_saved"
	ContactUnresponsive ContactStatus = "unresponsive"
	ContactBlocked      ContactStatus = "blocked"
)

// ExchangeStatus represents the state of one reciprocal-promotion exchange.
type ExchangeStatus string

const (
	ExchangeInitiated         ExchangeStatus = "initiated"
	ExchangeNegotiating       ExchangeStatus = "negotiating"
	ExchangeAgreed            ExchangeStatus = "agreed"
	ExchangeMyTurnDone        ExchangeStatus = "my_turn_done"
	ExchangeTheirTurnDone     ExchangeStatus = "their_turn_done"
	ExchangeCompleted         ExchangeStatus = "completed"
	ExchangeFailed            ExchangeStatus = "failed"
	ExchangeNoResponse        ExchangeStatus = "no_response"
	ExchangePartnerIncomplete ExchangeStatus = "partner_did_not_complete"
)

// ConversationState represents the cursor of an in-flight negotiation.
type ConversationState string

const (
	ConvWaitingResponse  ConversationState = "waiting_response"
	ConvNegotiatingTerms ConversationState = "negotiating_terms"
	ConvWaitingExecution ConversationState = "waiting_execution"
	ConvVerifying        ConversationState = "verifying_completion"
	ConvCompleted        ConversationState = "completed"
	ConvFailed           ConversationState = "failed"
)

// contactTransitions defines allowed contact status transitions.
// unresponsive, responded and active_saved return to contacted when a
// relaunch opens a fresh exchange. blocked is terminal.
var contactTransitions = map[ContactStatus][]ContactStatus{
	ContactDiscovered:   {ContactContacted, ContactBlocked},
	ContactContacted:    {ContactResponded, ContactUnresponsive, ContactBlocked},
	ContactResponded:    {ContactActiveSaved, ContactContacted, ContactBlocked},
	ContactActiveSaved:  {ContactContacted, ContactBlocked},
	ContactUnresponsive: {ContactContacted, ContactBlocked},
	ContactBlocked:      {},
}

// exchangeFailures are terminal failure exits reachable from any non-terminal
// exchange status.
var exchangeFailures = []ExchangeStatus{
	ExchangeFailed,
	ExchangeNoResponse,
	ExchangePartnerIncomplete,
}

// exchangeTransitions defines the forward path. Failure exits are appended
// for every non-terminal status below.
var exchangeTransitions = map[ExchangeStatus][]ExchangeStatus{
	ExchangeInitiated:         {ExchangeNegotiating, ExchangeAgreed},
	ExchangeNegotiating:       {ExchangeAgreed},
	ExchangeAgreed:            {ExchangeMyTurnDone},
	ExchangeMyTurnDone:        {ExchangeTheirTurnDone},
	ExchangeTheirTurnDone:     {ExchangeCompleted},
	ExchangeCompleted:         {},
	ExchangeFailed:            {},
	ExchangeNoResponse:        {},
	ExchangePartnerIncomplete: {},
}

var convTransitions = map[ConversationState][]ConversationState{
	ConvWaitingResponse:  {ConvNegotiatingTerms, ConvWaitingExecution, ConvFailed},
	ConvNegotiatingTerms: {ConvWaitingExecution, ConvFailed},
	ConvWaitingExecution: {ConvVerifying, ConvFailed},
	ConvVerifying:        {ConvCompleted, ConvFailed},
	ConvCompleted:        {},
	ConvFailed:           {},
}

func init() {
	for from, tos := range exchangeTransitions {
		if !ExchangeTerminal(from) {
			exchangeTransitions[from] = append(tos, exchangeFailures...)
		}
	}
}

// ContactCanTransition reports whether a contact may move from one status to another.
func ContactCanTransition(from, to ContactStatus) bool {
	return slices.Contains(contactTransitions[from], to)
}

// ExchangeCanTransition reports whether an exchange may move from one status to another.
func ExchangeCanTransition(from, to ExchangeStatus) bool {
	return slices.Contains(exchangeTransitions[from], to)
}

// ConvCanTransition reports whether a conversation may move from one state to another.
func ConvCanTransition(from, to ConversationState) bool {
	return slices.Contains(convTransitions[from], to)
}

// ExchangeTerminal reports whether s admits no further transitions.
func ExchangeTerminal(s ExchangeStatus) bool {
	switch s {
	case ExchangeCompleted, ExchangeFailed, ExchangeNoResponse, ExchangePartnerIncomplete:
		return true
	}
	return false
}

// ConvTerminal reports whether s admits no further transitions.
func ConvTerminal(s ConversationState) bool {
	return s == ConvCompleted || s == ConvFailed
}

// TerminalExchangeStatuses lists every terminal exchange status. The store
// uses it to build "non-terminal" SQL filters.
func TerminalExchangeStatuses() []ExchangeStatus {
	return []ExchangeStatus{ExchangeCompleted, ExchangeFailed, ExchangeNoResponse, ExchangePartnerIncomplete}
}
