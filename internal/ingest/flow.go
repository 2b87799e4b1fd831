package ingest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage is a step of the add-story flow.
type Stage string

const (
	StageUpload     Stage = "upload"
	StageProcessing Stage = "processing"
	StageDetails    Stage = "details"
	StageSubmitting Stage = "submitting"
	StageDone       Stage = "done"
)

// Mode is how the content of a draft is provided.
type Mode string

const (
	ModeUpload Mode = "upload"
	ModeText   Mode = "text"
	ModeRecord Mode = "record"
)

// Valid reports whether m is a known input mode.
func (m Mode) Valid() bool {
	return m == ModeUpload || m == ModeText || m == ModeRecord
}

var (
	ErrInvalidTransition = errors.New("invalid flow transition")
	ErrFlowNotFound      = errors.New("flow not found")
)

var transitions = map[Stage][]Stage{
	StageUpload:     {StageProcessing},
	StageProcessing: {StageDetails, StageUpload},
	StageDetails:    {StageSubmitting, StageUpload},
	StageSubmitting: {StageDone, StageDetails},
}

// Flow is one user's draft moving from input to a saved story.
type Flow struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	Mode      Mode      `json:"mode"`
	Stage     Stage     `json:"stage"`
	FileName  string    `json:"file_name,omitempty"`
	MIMEType  string    `json:"mime_type,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Fallback  bool      `json:"fallback"`
	Error     string    `json:"error,omitempty"`
	StoryID   uint      `json:"story_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (f *Flow) move(to Stage, now time.Time) error {
	for _, allowed := range transitions[f.Stage] {
		if allowed == to {
			f.Stage = to
			f.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, f.Stage, to)
}

// FlowRegistry keeps drafts in memory, keyed by id.
type FlowRegistry struct {
	mu    sync.Mutex
	flows map[string]*Flow
	now   func() time.Time
}

func NewFlowRegistry() *FlowRegistry {
	return &FlowRegistry{flows: make(map[string]*Flow), now: time.Now}
}

// Create starts a new flow at the upload stage.
func (r *FlowRegistry) Create(userID uint, mode Mode) *Flow {
	now := r.now()
	f := &Flow{
		ID:        uuid.NewString(),
		UserID:    userID,
		Mode:      mode,
		Stage:     StageUpload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.mu.Lock()
	r.flows[f.ID] = f
	r.mu.Unlock()
	cp := *f
	return &cp
}

// Get returns a copy of the flow if it belongs to userID.
func (r *FlowRegistry) Get(id string, userID uint) (*Flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.lookupLocked(id, userID)
	if err != nil {
		return nil, err
	}
	cp := *f
	return &cp, nil
}

func (r *FlowRegistry) lookupLocked(id string, userID uint) (*Flow, error) {
	f, ok := r.flows[id]
	if !ok || f.UserID != userID {
		return nil, ErrFlowNotFound
	}
	return f, nil
}

// update applies fn to the stored flow under the lock and returns a copy.
func (r *FlowRegistry) update(id string, userID uint, fn func(f *Flow, now time.Time) error) (*Flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.lookupLocked(id, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(f, r.now()); err != nil {
		return nil, err
	}
	cp := *f
	return &cp, nil
}

// BeginProcessing moves an upload-stage flow to processing and records the input.
func (r *FlowRegistry) BeginProcessing(id string, userID uint, fileName, mimeType string) (*Flow, error) {
	return r.update(id, userID, func(f *Flow, now time.Time) error {
		if err := f.move(StageProcessing, now); err != nil {
			return err
		}
		f.FileName = fileName
		f.MIMEType = mimeType
		f.Error = ""
		return nil
	})
}

// CompleteProcessing stores the model result and opens the details stage.
func (r *FlowRegistry) CompleteProcessing(id string, userID uint, res Result, fallback bool) (*Flow, error) {
	return r.update(id, userID, func(f *Flow, now time.Time) error {
		if err := f.move(StageDetails, now); err != nil {
			return err
		}
		res = res.normalized()
		f.Result = &res
		f.Fallback = fallback
		return nil
	})
}

// FailProcessing returns the flow to upload with msg. Nothing is cached, so
// the next attempt calls the model again.
func (r *FlowRegistry) FailProcessing(id string, userID uint, msg string) (*Flow, error) {
	return r.update(id, userID, func(f *Flow, now time.Time) error {
		if err := f.move(StageUpload, now); err != nil {
			return err
		}
		f.Result = nil
		f.Error = msg
		return nil
	})
}

// Restart drops the current result and returns a details-stage flow to upload.
func (r *FlowRegistry) Restart(id string, userID uint) (*Flow, error) {
	return r.update(id, userID, func(f *Flow, now time.Time) error {
		if f.Stage != StageDetails {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, f.Stage, StageUpload)
		}
		if err := f.move(StageUpload, now); err != nil {
			return err
		}
		f.Result = nil
		f.Error = ""
		return nil
	})
}

// BeginSubmit moves a details-stage flow to submitting.
func (r *FlowRegistry) BeginSubmit(id string, userID uint) (*Flow, error) {
	return r.update(id, userID, func(f *Flow, now time.Time) error {
		if err := f.move(StageSubmitting, now); err != nil {
			return err
		}
		f.Error = ""
		return nil
	})
}

// CompleteSubmit records the created story and finishes the flow.
func (r *FlowRegistry) CompleteSubmit(id string, userID uint, storyID uint) (*Flow, error) {
	return r.update(id, userID, func(f *Flow, now time.Time) error {
		if err := f.move(StageDone, now); err != nil {
			return err
		}
		f.StoryID = storyID
		return nil
	})
}

// FailSubmit returns the flow to details with msg.
func (r *FlowRegistry) FailSubmit(id string, userID uint, msg string) (*Flow, error) {
	return r.update(id, userID, func(f *Flow, now time.Time) error {
		if err := f.move(StageDetails, now); err != nil {
			return err
		}
		f.Error = msg
		return nil
	})
}

// Delete forgets a flow.
func (r *FlowRegistry) Delete(id string, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.lookupLocked(id, userID); err != nil {
		return err
	}
	delete(r.flows, id)
	return nil
}

// Prune drops flows untouched for longer than maxAge and reports how many.
func (r *FlowRegistry) Prune(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-maxAge)
	n := 0
	for id, f := range r.flows {
		if f.UpdatedAt.Before(cutoff) {
			delete(r.flows, id)
			n++
		}
	}
	return n
}

// Len is the number of live flows.
func (r *FlowRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}
