package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/InnovationGarageLM/sphero-sprk/internal/protocol"
)

// Sample is one decoded sensor group from a streamed packet
type Sample struct {
	Group  string    `json:"group"`
	Fields []string  `json:"fields"`
	Values []int16   `json:"values"`
	Time   time.Time `json:"time"`
}

// Value returns the named field's value
func (s Sample) Value(field string) (int16, bool) {
	for i, f := range s.Fields {
		if f == field && i < len(s.Values) {
			return s.Values[i], true
		}
	}
	return 0, false
}

func (s Sample) String() string {
	out := s.Group
	for i, v := range s.Values {
		name := fmt.Sprintf("v%d", i)
		if i < len(s.Fields) {
			name = s.Fields[i]
		}
		out += fmt.Sprintf(" %s=%d", name, v)
	}
	return out
}

// Stream subscribes to a sensor group, delivering each decoded sample to fn
// on the session's delivery goroutine. Call UpdateStreaming to apply.
func (r *Robot) Stream(group string, fn func(Sample)) error {
	_, g, err := r.s.Tables().Lookup(group)
	if err != nil {
		return err
	}
	fields := g.FieldNames()

	return r.s.Subscribe(group, func(data []byte) {
		fn(Sample{
			Group:  group,
			Fields: fields,
			Values: protocol.Int16s(data),
			Time:   time.Now(),
		})
	})
}

// StopStream unsubscribes from a sensor group
func (r *Robot) StopStream(group string) error {
	return r.s.Unsubscribe(group)
}

// UpdateStreaming applies the current subscriptions at rate Hz
func (r *Robot) UpdateStreaming(ctx context.Context, rate int) error {
	return r.s.UpdateStreaming(ctx, rate)
}

// StopStreaming turns streaming off without dropping subscriptions
func (r *Robot) StopStreaming(ctx context.Context) error {
	return r.s.StopStreaming(ctx)
}
