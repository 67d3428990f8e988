package event

import "encoding/json"

// WsEvent is the wire frame for both directions of websocket traffic.
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New builds a WsEvent with the payload marshalled in. Marshal failures are
// impossible for the payload structs used here; the zero RawMessage is kept
// on error so a broken payload never blocks the frame.
func New(name string, payload any) WsEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		return WsEvent{Event: name}
	}
	return WsEvent{Event: name, Payload: raw}
}
