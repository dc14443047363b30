// Package events provides pool lifecycle and job completion notifications.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventPoolRun is emitted once every worker of a pool has come online
	EventPoolRun EventType = "pool_run"
	// EventPoolStop is emitted after Stop has joined every worker
	EventPoolStop EventType = "pool_stop"
	// EventPoolIdle is emitted when the last busy worker finds the queue empty
	EventPoolIdle EventType = "pool_idle"
	// EventPoolPause is emitted when job fetching is paused
	EventPoolPause EventType = "pool_pause"
	// EventPoolResume is emitted when job fetching resumes
	EventPoolResume EventType = "pool_resume"
	// EventWorkerOnline is emitted when a worker goroutine starts
	EventWorkerOnline EventType = "worker_online"
	// EventWorkerOffline is emitted when a worker goroutine exits
	EventWorkerOffline EventType = "worker_offline"
	// EventJobDone is emitted after a job function returns or panics
	EventJobDone EventType = "job_done"
)

// Event represents a pool or job event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	PoolID    string    `json:"pool_id"`
	WorkerID  int       `json:"worker_id"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	JobID     uint64 `json:"job_id,omitempty"`
	Status    int    `json:"status,omitempty"`
	Panicked  bool   `json:"panicked,omitempty"`
	Latency   string `json:"latency,omitempty"`
	Workers   int    `json:"workers,omitempty"`
	Abandoned int    `json:"abandoned,omitempty"`
}

// NewPoolEvent creates a pool-level event with no worker attached
func NewPoolEvent(t EventType, poolID string) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		PoolID:    poolID,
		WorkerID:  -1,
	}
}

// NewPoolRunEvent creates a pool run event
func NewPoolRunEvent(poolID string, workers int) Event {
	e := NewPoolEvent(EventPoolRun, poolID)
	e.Data.Workers = workers
	return e
}

// NewPoolStopEvent creates a pool stop event
func NewPoolStopEvent(poolID string, abandoned int) Event {
	e := NewPoolEvent(EventPoolStop, poolID)
	e.Data.Abandoned = abandoned
	return e
}

// NewWorkerEvent creates a worker online/offline event
func NewWorkerEvent(t EventType, poolID string, workerID int) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		PoolID:    poolID,
		WorkerID:  workerID,
	}
}

// NewJobDoneEvent creates a job completion event
func NewJobDoneEvent(poolID string, workerID int, jobID uint64, status int, panicked bool, latency time.Duration) Event {
	return Event{
		Type:      EventJobDone,
		Timestamp: time.Now(),
		PoolID:    poolID,
		WorkerID:  workerID,
		Data: EventData{
			JobID:    jobID,
			Status:   status,
			Panicked: panicked,
			Latency:  latency.String(),
		},
	}
}
