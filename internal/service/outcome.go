package service

import "github.com/mindful-app/realtime-service/internal/model"

// Target selects who receives an outbound message.
type Target int

const (
	TargetSender Target = iota
	TargetRoom
	TargetAll
)

// Outbound is one derived event to emit.
type Outbound struct {
	Target        Target
	Room          string
	ExcludeSender bool
	Event         string
	Payload       interface{}
}

// Outcome is the result of handling one inbound event. The transport applies
// Join, then Leave, then Messages in order.
type Outcome struct {
	Join     []string
	Leave    []string
	Messages []Outbound
}

func toSender(event string, payload interface{}) Outbound {
	return Outbound{Target: TargetSender, Event: event, Payload: payload}
}

func toRoom(room string, excludeSender bool, event string, payload interface{}) Outbound {
	return Outbound{Target: TargetRoom, Room: room, ExcludeSender: excludeSender, Event: event, Payload: payload}
}

func toAll(excludeSender bool, event string, payload interface{}) Outbound {
	return Outbound{Target: TargetAll, ExcludeSender: excludeSender, Event: event, Payload: payload}
}

func emit(msgs ...Outbound) Outcome {
	return Outcome{Messages: msgs}
}

func errorOutcome(event, message string) Outcome {
	return emit(toSender(model.EventError, model.ErrorEvent{Message: message, Event: event}))
}
