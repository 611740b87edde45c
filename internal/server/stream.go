package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Render stages reported in progress events
const (
	StageLoading   = "loading"
	StageRendering = "rendering"
	StageSaving    = "saving"
	StageDone      = "done"
)

// streamPing is how often an idle stream gets a keep-alive comment.
const streamPing = 30 * time.Second

// ProgressEvent is one update of a render job as sent to SSE clients.
type ProgressEvent struct {
	JobID      string        `json:"jobId"`
	State      JobState      `json:"state"`
	Stage      string        `json:"stage,omitempty"`
	DropShadow string        `json:"dropShadow,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
	Error      string        `json:"error,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// progressOf describes the current state of job.
func progressOf(job *Job) ProgressEvent {
	return ProgressEvent{
		JobID:      job.ID,
		State:      job.State,
		Stage:      job.Stage,
		DropShadow: job.DropShadow,
		Elapsed:    job.Elapsed,
		Error:      job.Error,
		Timestamp:  time.Now(),
	}
}

// name is the SSE event name: the stage while running, else the state.
func (e ProgressEvent) name() string {
	if e.State == StateRunning && e.Stage != "" {
		return e.Stage
	}
	return string(e.State)
}

// topic holds the subscribers of one job.
type topic struct {
	subs map[chan ProgressEvent]struct{}
}

// EventBroadcaster fans progress events out to the SSE clients of each job.
// Subscribers only see events broadcast after they subscribed; the stream
// handler sends the job's current state itself.
type EventBroadcaster struct {
	mu     sync.Mutex
	topics map[string]*topic
}

// NewEventBroadcaster creates an empty broadcaster
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{topics: make(map[string]*topic)}
}

func (eb *EventBroadcaster) topic(jobID string) *topic {
	t, ok := eb.topics[jobID]
	if !ok {
		t = &topic{subs: make(map[chan ProgressEvent]struct{})}
		eb.topics[jobID] = t
	}
	return t
}

// Subscribe registers a client for jobID.
func (eb *EventBroadcaster) Subscribe(jobID string) chan ProgressEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan ProgressEvent, 10)
	t := eb.topic(jobID)
	t.subs[ch] = struct{}{}

	slog.Debug("SSE client subscribed", "job_id", jobID, "clients", len(t.subs))
	return ch
}

// Unsubscribe removes ch and closes it. Channels already closed by
// CleanupJob are ignored.
func (eb *EventBroadcaster) Unsubscribe(jobID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	t, ok := eb.topics[jobID]
	if !ok {
		return
	}
	if _, ok := t.subs[ch]; !ok {
		return
	}
	delete(t.subs, ch)
	close(ch)
	if len(t.subs) == 0 {
		delete(eb.topics, jobID)
	}
	slog.Debug("SSE client unsubscribed", "job_id", jobID)
}

// Broadcast hands event to every subscriber of its job. A subscriber whose
// buffer is full misses the event.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	t, ok := eb.topics[event.JobID]
	if !ok {
		return
	}
	for ch := range t.subs {
		select {
		case ch <- event:
		default:
			slog.Warn("SSE client too slow, event dropped", "job_id", event.JobID, "event", event.name())
		}
	}
}

// CleanupJob closes every subscriber of jobID.
func (eb *EventBroadcaster) CleanupJob(jobID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	t, ok := eb.topics[jobID]
	if !ok {
		return
	}
	for ch := range t.subs {
		close(ch)
	}
	delete(eb.topics, jobID)
	slog.Debug("Cleaned up SSE resources", "job_id", jobID)
}

// handleJobStream handles GET /api/v1/renders/:id/stream. The first event is
// the job's current state; a finished job ends the stream right after it.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request, jobID string) {
	if _, exists := s.jobManager.GetJob(jobID); !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Subscribe before taking the snapshot so no update falls in between
	events := s.jobManager.broadcaster.Subscribe(jobID)
	defer s.jobManager.broadcaster.Unsubscribe(jobID, events)

	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		return
	}
	current := progressOf(job)
	if err := writeSSEEvent(w, current); err != nil {
		slog.Error("Failed to write SSE event", "job_id", jobID, "error", err)
		return
	}
	flusher.Flush()
	if current.State.terminal() {
		return
	}

	ping := time.NewTicker(streamPing)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("SSE client disconnected", "job_id", jobID)
			return

		case event, open := <-events:
			if !open {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				slog.Error("Failed to write SSE event", "job_id", jobID, "error", err)
				return
			}
			flusher.Flush()
			if event.State.terminal() {
				return
			}

		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes one named event with a JSON payload.
func writeSSEEvent(w http.ResponseWriter, event ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.name(), data)
	return err
}
