// Package recording captures audio in chunks on the server, finalizes it
// into a single object and hands it to a transcriber.
package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arvi1709/AI-library/internal/storage"
)

// State is a step of the recording lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StatePaused       State = "paused"
	StateStopped      State = "stopped"
	StateTranscribing State = "transcribing"
	StateDone         State = "done"
)

// AudioMIMEType is the content type of every finalized recording.
const AudioMIMEType = "audio/webm"

// TranscriptionFailedMessage is shown when a recording could not be transcribed.
const TranscriptionFailedMessage = "There was an error transcribing your recording. Please try again."

var (
	ErrInvalidState = errors.New("invalid recording state")
	ErrTooLarge     = errors.New("recording exceeds the size limit")
	ErrEmpty        = errors.New("recording is empty")
)

// Audio is a finalized recording.
type Audio struct {
	FileName  string    `json:"file_name"`
	MIMEType  string    `json:"mime_type"`
	URL       string    `json:"url,omitempty"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`

	data []byte
}

// Bytes returns the audio payload.
func (a *Audio) Bytes() []byte { return a.data }

// Transcriber turns finalized audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio *Audio) (string, error)
}

// TranscriberFunc adapts a function to Transcriber.
type TranscriberFunc func(ctx context.Context, audio *Audio) (string, error)

func (f TranscriberFunc) Transcribe(ctx context.Context, audio *Audio) (string, error) {
	return f(ctx, audio)
}

// Status is a point-in-time view of a session.
type Status struct {
	ID         string        `json:"id"`
	State      State         `json:"state"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Seconds    int           `json:"elapsed_seconds"`
	Buffered   int           `json:"buffered_bytes"`
	Audio      *Audio        `json:"audio,omitempty"`
	Transcript string        `json:"transcript,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Session is one user's recording.
type Session struct {
	ID     string
	UserID uint

	mu         sync.Mutex
	now        func() time.Time
	maxBytes   int
	state      State
	buf        bytes.Buffer
	elapsed    time.Duration
	runStart   time.Time
	audio      *Audio
	transcript string
	lastErr    string
	touched    time.Time
}

func newSession(id string, userID uint, now func() time.Time, maxBytes int) *Session {
	return &Session{ID: id, UserID: userID, now: now, maxBytes: maxBytes, state: StateIdle, touched: now()}
}

func (s *Session) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, s.state)
}

// Start opens the capture.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return s.invalid("start")
	}
	now := s.now()
	s.state = StateRecording
	s.runStart = now
	s.touched = now
	return nil
}

// Append buffers a chunk. Chunks are only accepted while recording.
func (s *Session) Append(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return s.invalid("append")
	}
	if s.maxBytes > 0 && s.buf.Len()+len(chunk) > s.maxBytes {
		return ErrTooLarge
	}
	s.buf.Write(chunk)
	s.touched = s.now()
	return nil
}

// Pause suspends capture without closing it.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return s.invalid("pause")
	}
	now := s.now()
	s.elapsed += now.Sub(s.runStart)
	s.state = StatePaused
	s.touched = now
	return nil
}

// Resume continues a paused capture.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return s.invalid("resume")
	}
	now := s.now()
	s.runStart = now
	s.state = StateRecording
	s.touched = now
	return nil
}

// Stop joins every buffered chunk into one audio object and releases the
// buffer.
func (s *Session) Stop() (*Audio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording && s.state != StatePaused {
		return nil, s.invalid("stop")
	}
	if s.buf.Len() == 0 {
		return nil, ErrEmpty
	}
	now := s.now()
	if s.state == StateRecording {
		s.elapsed += now.Sub(s.runStart)
	}

	data := make([]byte, s.buf.Len())
	copy(data, s.buf.Bytes())
	s.buf = bytes.Buffer{}

	s.audio = &Audio{
		FileName:  storage.RecordingFileName(now),
		MIMEType:  AudioMIMEType,
		Size:      len(data),
		CreatedAt: now,
		data:      data,
	}
	s.state = StateStopped
	s.touched = now
	return s.audio, nil
}

// Transcribe runs t over the finalized audio. On failure the session goes
// back to stopped with the audio kept, so calling Transcribe again retries.
func (s *Session) Transcribe(ctx context.Context, t Transcriber) (string, error) {
	s.mu.Lock()
	if s.state != StateStopped {
		err := s.invalid("transcribe")
		s.mu.Unlock()
		return "", err
	}
	s.state = StateTranscribing
	s.lastErr = ""
	audio := s.audio
	s.touched = s.now()
	s.mu.Unlock()

	text, err := t.Transcribe(ctx, audio)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = s.now()
	if s.state != StateTranscribing {
		// Cancelled while the transcriber was running.
		return "", s.invalid("finish transcription")
	}
	if err != nil {
		s.state = StateStopped
		s.lastErr = TranscriptionFailedMessage
		return "", err
	}
	s.transcript = text
	s.state = StateDone
	return text, nil
}

// Cancel discards everything and returns the session to idle.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.buf = bytes.Buffer{}
	s.elapsed = 0
	s.audio = nil
	s.transcript = ""
	s.lastErr = ""
	s.touched = s.now()
}

// Elapsed counts recorded time, excluding pauses.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

func (s *Session) elapsedLocked() time.Duration {
	if s.state == StateRecording {
		return s.elapsed + s.now().Sub(s.runStart)
	}
	return s.elapsed
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Audio returns the finalized audio, if any.
func (s *Session) Audio() *Audio {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audio
}

func (s *Session) setAudioURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audio != nil {
		s.audio.URL = url
	}
}

// Status snapshots the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := s.elapsedLocked()
	st := Status{
		ID:         s.ID,
		State:      s.state,
		Elapsed:    elapsed,
		Seconds:    int(elapsed / time.Second),
		Buffered:   s.buf.Len(),
		Transcript: s.transcript,
		Error:      s.lastErr,
	}
	if s.audio != nil {
		a := *s.audio
		st.Audio = &a
	}
	return st
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}
