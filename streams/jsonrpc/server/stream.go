package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/events"
	"github.com/defistate/defistate-amm-go/streams/jsonrpc"
	"github.com/ethereum/go-ethereum/rpc"
)

// SubscribeStateStream sends the current state as a "full" event, then a
// "diff" event against the previously sent state after every batch of
// committed operations.
func (api *API) SubscribeStateStream(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}

	// Subscribe before the first snapshot so no operation falls between the two.
	eventsCh := make(chan events.Event, api.bufferSize)
	feedSub := api.registry.Feed().Subscribe(eventsCh)

	full, err := api.fullState()
	if err != nil {
		feedSub.Unsubscribe()
		return nil, err
	}

	rpcSub := notifier.CreateSubscription()
	go func() {
		defer feedSub.Unsubscribe()

		if err := notifier.Notify(rpcSub.ID, jsonrpc.SubscriptionEvent{
			Type:    jsonrpc.EventTypeFull,
			Payload: full.payload,
			SentAt:  time.Now().UnixNano(),
		}); err != nil {
			api.logger.Warn("failed to send full state", "subscription", rpcSub.ID, "error", err)
			return
		}
		last := full.state

		for {
			select {
			case <-eventsCh:
				drain(eventsCh)
				next := api.registry.Snapshot()
				diff, err := api.differ.Diff(last, next)
				if err != nil {
					api.logger.Error("failed to diff states", "from", last.Sequence, "to", next.Sequence, "error", err)
					return
				}
				payload, err := json.Marshal(diff)
				if err != nil {
					api.logger.Error("failed to encode diff", "error", err)
					return
				}
				if err := notifier.Notify(rpcSub.ID, jsonrpc.SubscriptionEvent{
					Type:    jsonrpc.EventTypeDiff,
					Payload: payload,
					SentAt:  time.Now().UnixNano(),
				}); err != nil {
					api.logger.Warn("failed to send diff", "subscription", rpcSub.ID, "error", err)
					return
				}
				last = next
			case err := <-feedSub.Err():
				if err != nil {
					api.logger.Warn("event feed closed", "error", err)
				}
				return
			case <-rpcSub.Err():
				api.logger.Debug("state stream subscriber left", "subscription", rpcSub.ID)
				return
			}
		}
	}()

	api.logger.Debug("state stream subscriber joined", "subscription", rpcSub.ID, "sequence", full.state.Sequence)
	return rpcSub, nil
}

// SubscribeEvents forwards every registry and pool event as it is emitted.
func (api *API) SubscribeEvents(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return nil, rpc.ErrNotificationsUnsupported
	}

	eventsCh := make(chan events.Event, api.bufferSize)
	feedSub := api.registry.Feed().Subscribe(eventsCh)
	rpcSub := notifier.CreateSubscription()

	go func() {
		defer feedSub.Unsubscribe()
		for {
			select {
			case ev := <-eventsCh:
				if err := notifier.Notify(rpcSub.ID, ev); err != nil {
					api.logger.Warn("failed to send event", "subscription", rpcSub.ID, "error", err)
					return
				}
			case <-feedSub.Err():
				return
			case <-rpcSub.Err():
				return
			}
		}
	}()
	return rpcSub, nil
}

// fullState returns the current snapshot and its encoding. Subscribers joining
// at the same sequence share one encoding.
func (api *API) fullState() (fullState, error) {
	state := api.registry.Snapshot()
	if cached, ok := api.snapshots.Get(state.Sequence); ok {
		return cached, nil
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fullState{}, fmt.Errorf("failed to encode state: %w", err)
	}
	full := fullState{state: state, payload: payload}
	api.snapshots.Add(state.Sequence, full)
	return full, nil
}

// drain discards buffered events; the next snapshot covers them.
func drain(ch <-chan events.Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// Snapshot returns the current state of every pool.
func (api *API) Snapshot() *engine.State {
	return api.registry.Snapshot()
}
