package server

import (
	"time"

	"github.com/InnovationGarageLM/sphero-sprk/internal/robot"
	"github.com/InnovationGarageLM/sphero-sprk/internal/session"
)

// Event types sent to clients
const (
	EventSample   = "sample"
	EventOrbBasic = "orbbasic"
	EventStats    = "stats"
	EventHello    = "hello"
)

// Event is one JSON message on the telemetry feed
type Event struct {
	Type     string                   `json:"type"`
	Time     time.Time                `json:"time"`
	Robot    string                   `json:"robot,omitempty"`
	Client   string                   `json:"client,omitempty"`
	Sample   *robot.Sample            `json:"sample,omitempty"`
	OrbBasic *session.OrbBasicMessage `json:"orbbasic,omitempty"`
	Stats    *session.Stats           `json:"stats,omitempty"`
}

// SampleEvent wraps a decoded sensor sample
func SampleEvent(robotName string, s robot.Sample) Event {
	return Event{Type: EventSample, Time: s.Time, Robot: robotName, Sample: &s}
}

// OrbBasicEvent wraps orbBasic program output
func OrbBasicEvent(robotName string, msg session.OrbBasicMessage) Event {
	return Event{Type: EventOrbBasic, Time: time.Now(), Robot: robotName, OrbBasic: &msg}
}

// StatsEvent wraps a session counter snapshot
func StatsEvent(robotName string, st session.Stats) Event {
	return Event{Type: EventStats, Time: time.Now(), Robot: robotName, Stats: &st}
}
