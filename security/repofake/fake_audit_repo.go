package fakeauditrepo

import (
	"sync"
	"time"

	"github.com/filevault/filevault/security"
	"github.com/google/uuid"
)

var _ security.AuditRepo = (*FakeAuditRepo)(nil)

// maxEventsPerUser caps in-memory history the same way the production store
// prunes old rows.
const maxEventsPerUser = 1000

type FakeAuditRepo struct {
	events map[string][]*security.AuditEvent // user ID to events, oldest first
	lock   sync.RWMutex
}

func NewFakeAuditRepo() security.AuditRepo {
	return &FakeAuditRepo{
		events: make(map[string][]*security.AuditEvent),
	}
}

func (ar *FakeAuditRepo) Append(event *security.AuditEvent) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	userEvents := append(ar.events[event.UserID], event)
	if len(userEvents) > maxEventsPerUser {
		userEvents = userEvents[len(userEvents)-maxEventsPerUser:]
	}
	ar.events[event.UserID] = userEvents
	return nil
}

func (ar *FakeAuditRepo) ListByUser(userID string, since time.Time, limit int) ([]*security.AuditEvent, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	matched := make([]*security.AuditEvent, 0)
	userEvents := ar.events[userID]
	// newest first
	for i := len(userEvents) - 1; i >= 0; i-- {
		if userEvents[i].Timestamp.Before(since) {
			continue
		}
		matched = append(matched, userEvents[i])
		if limit > 0 && len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

func (ar *FakeAuditRepo) CountByUserAndType(userID, eventType string, since time.Time) (int, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	count := 0
	for _, e := range ar.events[userID] {
		if e.Type == eventType && !e.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}
