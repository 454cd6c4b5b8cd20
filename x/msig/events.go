package msig

import (
	"context"
	"strconv"
	"sync"

	"github.com/tendermint/tendermint/libs/common"
	"github.com/tessara-io/lockstep"
)

// Event is a state change notification. The engine emits an event after the
// change was committed, so consumers observe only transitions that actually
// happened. The full account history can be reconstructed from the event
// stream.
type Event interface {
	// Tags returns the indexable attributes of this event.
	Tags() []common.KVPair
}

// Sink consumes events emitted by the engine. Delivery is fire and forget.
// A sink cannot fail an operation and must not block for long.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// AddOwnersEvent reports owners joining the account registry.
type AddOwnersEvent struct {
	Account lockstep.Address   `json:"account"`
	Added   []lockstep.Address `json:"added"`
}

func (ev AddOwnersEvent) Tags() []common.KVPair {
	return eventTags("add-owners", ev.Account)
}

// RemoveOwnersEvent reports owners leaving the account registry.
type RemoveOwnersEvent struct {
	Account lockstep.Address   `json:"account"`
	Removed []lockstep.Address `json:"removed"`
}

func (ev RemoveOwnersEvent) Tags() []common.KVPair {
	return eventTags("remove-owners", ev.Account)
}

// UpdateThresholdEvent reports a change of the approval threshold.
type UpdateThresholdEvent struct {
	Account      lockstep.Address `json:"account"`
	OldThreshold uint32           `json:"old_threshold"`
	NewThreshold uint32           `json:"new_threshold"`
}

func (ev UpdateThresholdEvent) Tags() []common.KVPair {
	return eventTags("update-threshold", ev.Account)
}

// CreateTransactionEvent reports a new proposal entering the queue.
type CreateTransactionEvent struct {
	Account     lockstep.Address `json:"account"`
	Creator     lockstep.Address `json:"creator"`
	Sequence    Seq              `json:"sequence"`
	Transaction *Transaction     `json:"transaction"`
}

func (ev CreateTransactionEvent) Tags() []common.KVPair {
	return eventTags("create-transaction", ev.Account, seqTag(ev.Sequence))
}

// VoteEvent reports a cast or changed vote.
type VoteEvent struct {
	Account  lockstep.Address `json:"account"`
	Owner    lockstep.Address `json:"owner"`
	Sequence Seq              `json:"sequence"`
	Approve  bool             `json:"approve"`
}

func (ev VoteEvent) Tags() []common.KVPair {
	vote := "reject"
	if ev.Approve {
		vote = "approve"
	}
	return eventTags("vote", ev.Account, seqTag(ev.Sequence), common.KVPair{
		Key:   []byte("msig-vote"),
		Value: []byte(vote),
	})
}

// ExecuteRejectedEvent reports a transaction removed from the queue because
// enough owners rejected it.
type ExecuteRejectedEvent struct {
	Account    lockstep.Address `json:"account"`
	Executor   lockstep.Address `json:"executor"`
	Sequence   Seq              `json:"sequence"`
	Rejections uint32           `json:"rejections"`
}

func (ev ExecuteRejectedEvent) Tags() []common.KVPair {
	return eventTags("execute-rejected", ev.Account, seqTag(ev.Sequence))
}

// ExecuteSuccessEvent reports a successfully executed transaction.
type ExecuteSuccessEvent struct {
	Account     lockstep.Address `json:"account"`
	Executor    lockstep.Address `json:"executor"`
	Sequence    Seq              `json:"sequence"`
	PayloadHash []byte           `json:"payload_hash"`
	Approvals   uint32           `json:"approvals"`
}

func (ev ExecuteSuccessEvent) Tags() []common.KVPair {
	return eventTags("execute-success", ev.Account, seqTag(ev.Sequence))
}

// ExecuteFailedEvent reports a transaction whose execution was attempted and
// failed. The transaction is resolved regardless, the queue moves on.
type ExecuteFailedEvent struct {
	Account     lockstep.Address `json:"account"`
	Executor    lockstep.Address `json:"executor"`
	Sequence    Seq              `json:"sequence"`
	PayloadHash []byte           `json:"payload_hash"`
	Approvals   uint32           `json:"approvals"`
	Error       ExecutionError   `json:"error"`
}

func (ev ExecuteFailedEvent) Tags() []common.KVPair {
	return eventTags("execute-failed", ev.Account, seqTag(ev.Sequence))
}

// MetadataUpdatedEvent reports a full replacement of the account metadata.
type MetadataUpdatedEvent struct {
	Account     lockstep.Address  `json:"account"`
	OldMetadata map[string][]byte `json:"old_metadata,omitempty"`
	NewMetadata map[string][]byte `json:"new_metadata,omitempty"`
}

func (ev MetadataUpdatedEvent) Tags() []common.KVPair {
	return eventTags("metadata-updated", ev.Account)
}

func eventTags(action string, account lockstep.Address, extra ...common.KVPair) []common.KVPair {
	tags := make([]common.KVPair, 0, 2+len(extra))
	tags = append(tags,
		common.KVPair{Key: []byte("msig-action"), Value: []byte(action)},
		common.KVPair{Key: []byte("msig-account"), Value: []byte(account.String())},
	)
	return append(tags, extra...)
}

func seqTag(seq Seq) common.KVPair {
	return common.KVPair{
		Key:   []byte("msig-seq"),
		Value: []byte(strconv.FormatUint(uint64(seq), 10)),
	}
}

// NopSink drops all events.
type NopSink struct{}

var _ Sink = NopSink{}

func (NopSink) Emit(context.Context, Event) {}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event)

var _ Sink = (SinkFunc)(nil)

func (fn SinkFunc) Emit(ctx context.Context, ev Event) {
	fn(ctx, ev)
}

// MultiSink fans every event out to all given sinks, in order.
func MultiSink(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (s multiSink) Emit(ctx context.Context, ev Event) {
	for _, sink := range s {
		sink.Emit(ctx, ev)
	}
}

// LogSink writes every event to the context logger.
type LogSink struct{}

var _ Sink = LogSink{}

func (LogSink) Emit(ctx context.Context, ev Event) {
	tags := ev.Tags()
	keyvals := make([]interface{}, 0, 2*len(tags))
	for _, tag := range tags {
		keyvals = append(keyvals, string(tag.Key), string(tag.Value))
	}
	lockstep.GetLogger(ctx).Info("msig event", keyvals...)
}

// CaptureSink buffers every event in memory. Safe for concurrent use.
type CaptureSink struct {
	mu     sync.Mutex
	events []Event
}

var _ Sink = (*CaptureSink)(nil)

func (s *CaptureSink) Emit(ctx context.Context, ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

// Events returns all captured events in emission order.
func (s *CaptureSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Reset drops all captured events.
func (s *CaptureSink) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}
