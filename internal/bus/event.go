package bus

import "time"

// Event kinds published on the bus. Subscribers filter by namespace prefix,
// e.g. "tg." for inbound platform events or "exchange." for lifecycle changes.
const (
	KindInboundMessage      = "tg.message"
	KindContactUpdated      = "contact.updated"
	KindExchangeUpdated     = "exchange.updated"
	KindDMQueued            = "dm.queued"
	KindDMSendAck           = "dm.send_ack"
	KindDMSendFailed        = "dm.send_failed"
	KindExpiredConversation = "sweep.expired_conversation"
	KindExpiredExchange     = "sweep.expired_exchange"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
