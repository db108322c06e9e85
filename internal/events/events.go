// Package events publishes named lifecycle events for a co-located UI to
// poll. It is a deliberate workaround: the UI runs as a separate process
// with no channel back into this one, so events are written into the
// settings store under a reserved key prefix and drained (read, then
// cleared) by the UI rather than delivered over an in-memory broadcast
// channel.
package events

import (
	"time"

	"github.com/lobinuxsoft/capydeploy/internal/settings"
)

// Record is the shape stored at settings.EventKeyPrefix+name.
type Record struct {
	Timestamp int64 `json:"timestamp"`
	Data      any   `json:"data"`
}

// Publisher writes event records to a settings.Store.
type Publisher struct {
	store *settings.Store
}

// New creates a Publisher backed by store.
func New(store *settings.Store) *Publisher {
	return &Publisher{store: store}
}

// Publish stores data under the event name's reserved key, stamped with
// the current time. A later call with the same name silently overwrites
// an undrained prior event, matching the settings store's synchronous
// single-writer model.
func (p *Publisher) Publish(name string, data any) error {
	return p.store.Set(settings.EventKeyPrefix+name, Record{
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
}

// Drain reads back the named event's record and clears it, matching the
// UI's read-then-null polling contract. Returns ok=false if no event (or
// only a previously-drained null) is present.
func (p *Publisher) Drain(name string) (Record, bool, error) {
	var rec *Record
	ok, err := p.store.Get(settings.EventKeyPrefix+name, &rec)
	if err != nil {
		return Record{}, false, err
	}
	if !ok || rec == nil {
		return Record{}, false, nil
	}
	if err := p.store.Set(settings.EventKeyPrefix+name, (*Record)(nil)); err != nil {
		return Record{}, false, err
	}
	return *rec, true, nil
}
