package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobKind names a background catalog task.
type JobKind string

const (
	// KindWarmSets resolves the card pools of SetIDs.
	KindWarmSets JobKind = "warm_sets"
	// KindFullCatalog downloads every card into the aggregate snapshot.
	KindFullCatalog JobKind = "full_catalog"
)

// Job is the payload flowing through the queue.
type Job struct {
	ID         string
	Kind       JobKind
	SetIDs     []string
	Force      bool
	EnqueuedAt time.Time
}

// NewJob returns a job with a fresh id.
func NewJob(kind JobKind, setIDs []string, force bool) Job {
	return Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		SetIDs:     setIDs,
		Force:      force,
		EnqueuedAt: time.Now(),
	}
}
