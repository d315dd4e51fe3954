// Package pubsub fans mutation results out to live subscribers.
//
// Channels are named "<KIND>.<key>", e.g. "TEAM.t1". Every subscription
// carries a Filter, normally ExcludeMutator, so a client never receives the
// echo of its own mutation. Events are not persisted; a subscriber that
// reconnects re-fetches state.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ChannelKind is the first segment of a channel name.
type ChannelKind string

const (
	Team         ChannelKind = "TEAM"
	TeamMember   ChannelKind = "TEAM_MEMBER"
	Meeting      ChannelKind = "MEETING"
	Notification ChannelKind = "NOTIFICATION"
)

// ChannelName builds the channel name for kind and key.
func ChannelName(kind ChannelKind, key string) string {
	return string(kind) + "." + key
}

// Envelope is one published event.
type Envelope struct {
	Channel     string          `json:"channel"`
	Type        string          `json:"type"`
	MutatorID   string          `json:"mutatorId,omitempty"`
	OperationID string          `json:"operationId,omitempty"`
	Data        json.RawMessage `json:"data"`
}

// Filter decides whether a subscriber receives env.
type Filter func(env Envelope) bool

// ExcludeMutator drops envelopes published by the connection socketID.
func ExcludeMutator(socketID string) Filter {
	return func(env Envelope) bool {
		return socketID == "" || env.MutatorID != socketID
	}
}

// AcceptAll delivers every envelope. Used by server-side listeners that have
// no socket of their own.
func AcceptAll(Envelope) bool { return true }

var (
	ErrNilFilter   = errors.New("pubsub: subscribe requires a filter")
	ErrNoChannels  = errors.New("pubsub: subscribe requires at least one channel")
	ErrClosed      = errors.New("pubsub: broker closed")
	ErrNoChannelID = errors.New("pubsub: publish requires a channel")
)

// Broker publishes envelopes and hands out filtered subscriptions.
type Broker interface {
	Publish(ctx context.Context, channel string, env Envelope) error
	Subscribe(ctx context.Context, channels []string, filter Filter) (*Subscription, error)
	Close() error
}

// Options carries the per-request identifiers stamped on an envelope.
type Options struct {
	MutatorID   string
	OperationID string
}

// Publish marshals data and publishes it on the channel for kind and key.
func Publish[T any](ctx context.Context, b Broker, kind ChannelKind, key, typ string, data T, opts Options) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	channel := ChannelName(kind, key)
	return b.Publish(ctx, channel, Envelope{
		Channel:     channel,
		Type:        typ,
		MutatorID:   opts.MutatorID,
		OperationID: opts.OperationID,
		Data:        raw,
	})
}

func checkSubscribe(channels []string, filter Filter) error {
	if filter == nil {
		return ErrNilFilter
	}
	if len(channels) == 0 {
		return ErrNoChannels
	}
	return nil
}
