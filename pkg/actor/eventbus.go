package actor

import (
	"context"

	"github.com/fluxorio/grainstate/pkg/core"
	"github.com/fluxorio/grainstate/pkg/definition"
)

// FireRequest is the wire body of a "fire" message sent over an EventBus
// address exposed by ExposeOverEventBus.
type FireRequest struct {
	Trigger   string        `json:"trigger"`
	Args      []interface{} `json:"args"`
	DedupeKey string        `json:"dedupe_key,omitempty"`
}

// FireResponse is the reply body, reporting the resulting current state or
// an error.
type FireResponse struct {
	NewState map[string]string `json:"new_state,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// ExposeOverEventBus registers a Consumer on bus at address that dispatches
// inbound FireRequest messages to adapter.Fire, replying with FireResponse.
// Per spec.md 4.E / section 9's redesign note, EventBus integration lives
// at the actor layer rather than being baked into fsm.Engine.
func ExposeOverEventBus(bus core.EventBus, address string, adapter *Adapter) core.Consumer {
	return bus.Consumer(address).Handler(func(fctx core.FluxorContext, msg core.Message) error {
		var req FireRequest
		if err := msg.DecodeBody(&req); err != nil {
			return msg.Fail(400, "invalid fire request: "+err.Error())
		}

		result, err := adapter.Fire(context.Background(), definition.Trigger(req.Trigger), req.Args, req.DedupeKey)
		if err != nil {
			return msg.Reply(FireResponse{Error: err.Error()})
		}

		states := make(map[string]string, len(result.NewState))
		for k, v := range result.NewState {
			states[k] = string(v)
		}
		return msg.Reply(FireResponse{NewState: states})
	})
}
