// Package sniper contains the event-response pipeline: it turns one
// logsSubscribe notification into a resolved pool, a risk decision, a buy
// swap and a persisted position, one event at a time.
package sniper

import (
	"encoding/json"
	"strings"
)

// initMarker prefixes the log line emitted by the AMM program when a new
// pool is initialized; the line continues with the decoded instruction
// payload. Matching it is what qualifies a notification as a pool-creation
// event.
const initMarker = "Program log: initialize2: InitializeInstruction2"

// PoolEvent is one qualifying pool-creation notification.
type PoolEvent struct {
	Signature string
	Logs      []string
}

// PoolMints are the two sides of a newly created pool.
type PoolMints struct {
	BaseMint  string
	QuoteMint string
}

// ParseNotification inspects one raw subscription message and returns the
// pool event it carries, or nil. Messages without a string signature, without
// a logs array, or without the initialization marker are silently ignored —
// the stream carries far more log notifications than pool creations.
func ParseNotification(raw json.RawMessage) *PoolEvent {
	var msg struct {
		Params struct {
			Result struct {
				Value struct {
					Signature interface{} `json:"signature"`
					Logs      interface{} `json:"logs"`
				} `json:"value"`
			} `json:"result"`
		} `json:"params"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}

	signature, ok := msg.Params.Result.Value.Signature.(string)
	if !ok || signature == "" {
		return nil
	}

	rawLogs, ok := msg.Params.Result.Value.Logs.([]interface{})
	if !ok {
		return nil
	}

	matched := false
	logs := make([]string, 0, len(rawLogs))
	for _, l := range rawLogs {
		line, ok := l.(string)
		if !ok {
			continue
		}
		logs = append(logs, line)
		if strings.Contains(line, initMarker) {
			matched = true
		}
	}
	if !matched {
		return nil
	}

	return &PoolEvent{Signature: signature, Logs: logs}
}
