package realtime

import (
	"encoding/json"
	"fmt"
)

// Event is one outbound frame, fanned out verbatim to every connection
// of a group. On the wire the payload fields sit next to "type":
//
//	{"type":"typing","user_id":7,"is_typing":true}
//
// Payload must therefore marshal to a JSON object (or be nil).
type Event struct {
	Type    string
	Payload any
}

func (e Event) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return json.Marshal(map[string]string{"type": e.Type})
	}

	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("event payload must be a JSON object: %w", err)
	}

	typ, err := json.Marshal(e.Type)
	if err != nil {
		return nil, err
	}
	fields["type"] = typ

	return json.Marshal(fields)
}
