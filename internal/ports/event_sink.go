package ports

import "github.com/bnema/tokenpool/internal/domain"

type EventSink interface {
	Emit(event domain.Event)
}

type NopEventSink struct{}

func (NopEventSink) Emit(domain.Event) {}
