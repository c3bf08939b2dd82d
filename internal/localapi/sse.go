package localapi

import (
	"encoding/json"

	"github.com/starfederation/datastar-go/datastar"
)

// Event types written to /events subscribers.
const (
	eventToast       datastar.EventType = "toast"
	eventChange      datastar.EventType = "change"
	eventPreferences datastar.EventType = "preferences"
	eventPing        datastar.EventType = "ping"
)

// sendJSON writes v as the single data line of an ev event.
func sendJSON(sse *datastar.ServerSentEventGenerator, ev datastar.EventType, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return sse.Send(ev, []string{string(data)})
}
