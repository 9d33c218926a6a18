package fanout

import (
	"testing"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	events []domain.Event
}

func (r *recordingSink) Emit(event domain.Event) {
	r.events = append(r.events, event)
}

func TestSinkForwardsToEverySinkAndSkipsNil(t *testing.T) {
	t.Parallel()

	first := &recordingSink{}
	second := &recordingSink{}
	sink := NewSink(first, nil, second)

	event := domain.Event{Kind: domain.EventRateLimitOnset, Label: "a"}
	sink.Emit(event)

	assert.Equal(t, []domain.Event{event}, first.events)
	assert.Equal(t, []domain.Event{event}, second.events)
}
