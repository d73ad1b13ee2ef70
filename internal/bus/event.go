package bus

import "time"

// Event kinds published inside a parley session.
const (
	KindComposerCommitted = "composer.committed"
	KindMessageUpserted   = "message.upserted"
	KindSendAck           = "message.send_ack"
	KindSendFailed        = "message.send_failed"
	KindPeerMessage       = "peer.message"
	KindPeerHistory       = "peer.history_batch"
	KindHistoryIngested   = "sync.history_batch"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// MessageRef identifies the stored message a message.upserted event is about.
type MessageRef struct {
	ChatID string
	MsgID  string
}
