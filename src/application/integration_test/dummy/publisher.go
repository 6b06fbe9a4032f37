package dummy

import (
	"sync"

	"mediagrab-be-server/src/application/events"
)

var _ events.Publisher = &Publisher{}

func NewDummyPublisher() *Publisher {
	return &Publisher{
		Unavailable: false,
		Events:      []events.RecordEvent{},
	}
}

type Publisher struct {
	Unavailable bool
	Events      []events.RecordEvent
	mutex       sync.Mutex
}

func (p *Publisher) PublishRecordEvent(event events.RecordEvent) error {
	if p.Unavailable {
		return NetworkFailure
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.Events = append(p.Events, event)
	return nil
}

func (p *Publisher) PublishedEvents() []events.RecordEvent {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return append([]events.RecordEvent{}, p.Events...)
}
