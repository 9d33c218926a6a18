// Package fanout forwards each event to several sinks in order.
package fanout

import (
	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
)

type Sink struct {
	sinks []ports.EventSink
}

var _ ports.EventSink = (*Sink)(nil)

func NewSink(sinks ...ports.EventSink) *Sink {
	kept := make([]ports.EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}

	return &Sink{sinks: kept}
}

func (s *Sink) Emit(event domain.Event) {
	for _, sink := range s.sinks {
		sink.Emit(event)
	}
}
