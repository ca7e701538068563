// Package upload implements the per-user upload session: file selection,
// validation, submission to the processing service and the outcome.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fin-processor/backend/internal/catalog"
	"github.com/fin-processor/backend/internal/logging"
	"github.com/fin-processor/backend/internal/models"
	"github.com/fin-processor/backend/internal/processor"
	"github.com/fin-processor/backend/internal/results"
)

// Uploader sends a workbook to the processing service.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (*processor.UploadResult, error)
}

// Notifier is told after every state change of a session.
type Notifier interface {
	Notify(sessionID string)
}

// MessageKind distinguishes the contents of the message slot.
type MessageKind string

const (
	MessageNone    MessageKind = ""
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

// Message is the single user-visible notice of a session.
type Message struct {
	Kind MessageKind `json:"kind,omitempty"`
	Text string      `json:"text,omitempty"`
}

func errorMessage(text string) Message { return Message{Kind: MessageError, Text: text} }

// successMessage returns no message for an empty text.
func successMessage(text string) Message {
	if text == "" {
		return Message{}
	}
	return Message{Kind: MessageSuccess, Text: text}
}

// Outcome is the result of one submit.
type Outcome struct {
	Result  *models.ResultSet
	Message string
	Err     error
}

// Session owns the selection, upload status, message slot and results of
// one user. All fields are guarded by a single mutex so they change together.
type Session struct {
	id       string
	uploader Uploader
	notifier Notifier
	allowed  []string
	log      *logrus.Entry

	mu           sync.Mutex
	selection    *models.FileSelection
	open         func() (io.ReadCloser, error)
	status       models.UploadStatus
	message      Message
	inFlight     bool
	epoch        uint64
	results      results.Model
	lastActivity time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// WithAllowedExtensions overrides the accepted extensions.
func WithAllowedExtensions(exts []string) Option {
	return func(s *Session) {
		if len(exts) > 0 {
			s.allowed = exts
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSession creates an idle session. An empty id gets a random one.
func NewSession(id string, up Uploader, opts ...Option) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	s := &Session{
		id:           id,
		uploader:     up,
		allowed:      DefaultExtensions,
		log:          logging.NewLogger("upload"),
		status:       models.UploadStatusIdle,
		lastActivity: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("session", id)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// SelectFile validates c and makes it the current selection, clearing any
// previous message and results. Selecting while an upload is in flight is
// allowed; that upload's response will be discarded. An unsupported
// extension only clears the selection and sets the error message: results,
// status and any in-flight upload are left alone.
func (s *Session) SelectFile(c Candidate) (*models.FileSelection, error) {
	s.mu.Lock()
	s.lastActivity = time.Now()

	if !IsAllowedExtension(c.Name, s.allowed) {
		err := &ValidationError{Reason: ReasonUnsupportedExtension, Name: c.Name}
		s.selection = nil
		s.open = nil
		s.message = errorMessage(err.Error())
		s.mu.Unlock()

		s.log.WithField("file", c.Name).Debug("rejected selection")
		s.notify()
		return nil, err
	}

	sel := &models.FileSelection{
		ID:         uuid.New().String(),
		Name:       c.Name,
		SizeBytes:  c.Size,
		Extension:  Extension(c.Name),
		SelectedAt: time.Now(),
	}
	s.epoch++
	s.status = models.UploadStatusIdle
	s.results.Clear()
	s.selection = sel
	s.open = c.Open
	s.message = Message{}
	out := *sel
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"file": sel.Name, "size": sel.SizeBytes}).Debug("file selected")
	s.notify()
	return &out, nil
}

// Submit uploads the current selection and waits for the outcome.
func (s *Session) Submit(ctx context.Context) (*models.ResultSet, error) {
	ch, err := s.SubmitAsync(ctx)
	if err != nil {
		return nil, err
	}
	o := <-ch
	return o.Result, o.Err
}

// SubmitAsync validates synchronously and then uploads in a new goroutine.
// The returned channel yields exactly one Outcome. Without a selection it
// returns a *ValidationError and issues no request; while a request is in
// flight it returns ErrUploadInProgress and changes nothing.
func (s *Session) SubmitAsync(ctx context.Context) (<-chan Outcome, error) {
	s.mu.Lock()
	if s.selection == nil {
		err := &ValidationError{Reason: ReasonNoFileSelected}
		s.message = errorMessage(err.Error())
		s.lastActivity = time.Now()
		s.mu.Unlock()
		s.notify()
		return nil, err
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrUploadInProgress
	}

	s.epoch++
	epoch := s.epoch
	sel := *s.selection
	open := s.open
	s.status = models.UploadStatusUploading
	s.message = Message{}
	s.inFlight = true
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.log.WithField("file", sel.Name).Info("upload started")
	s.notify()

	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		out <- s.run(ctx, epoch, sel, open)
	}()
	return out, nil
}

func (s *Session) run(ctx context.Context, epoch uint64, sel models.FileSelection, open func() (io.ReadCloser, error)) Outcome {
	start := time.Now()
	res, err := s.send(ctx, sel, open)

	s.mu.Lock()
	s.inFlight = false
	s.lastActivity = time.Now()

	if epoch != s.epoch {
		s.mu.Unlock()
		s.log.WithField("file", sel.Name).Info("discarded superseded upload response")
		s.notify()
		return Outcome{Err: ErrSuperseded}
	}

	if err != nil {
		s.status = models.UploadStatusFailed
		s.message = errorMessage(failureText(err))
		s.mu.Unlock()

		s.log.WithError(err).WithFields(logrus.Fields{
			"file":     sel.Name,
			"duration": time.Since(start).String(),
		}).Warn("upload failed")
		s.notify()
		return Outcome{Err: err}
	}

	s.status = models.UploadStatusSucceeded
	s.results.Install(res.Data)
	s.message = successMessage(res.Message)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"file":     sel.Name,
		"sheets":   res.Data.Len(),
		"duration": time.Since(start).String(),
	}).Info("upload succeeded")
	s.notify()
	return Outcome{Result: res.Data, Message: res.Message}
}

func (s *Session) send(ctx context.Context, sel models.FileSelection, open func() (io.ReadCloser, error)) (*processor.UploadResult, error) {
	if open == nil {
		return nil, readFailure(sel.Name, errors.New("no content"))
	}
	rc, err := open()
	if err != nil {
		return nil, readFailure(sel.Name, err)
	}
	defer rc.Close()

	res, err := s.uploader.Upload(ctx, sel.Name, rc)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Data == nil {
		return nil, processor.NewServerRejected(0, "", errors.New("empty upload result"))
	}
	return res, nil
}

// readFailure reports a selection whose content could not be read. No
// request was made, so it is classed as a transport failure.
func readFailure(name string, cause error) *processor.UploadError {
	return &processor.UploadError{
		Kind:    processor.KindTransportFailure,
		Message: fmt.Sprintf("Could not read %s: %v", name, cause),
		Err:     cause,
	}
}

func failureText(err error) string {
	var upErr *processor.UploadError
	if errors.As(err, &upErr) {
		return upErr.Message
	}
	return err.Error()
}

// SelectSheet changes the active sheet. An unknown key leaves the selection
// unchanged and sets the error message.
func (s *Session) SelectSheet(key string) error {
	s.mu.Lock()
	err := s.results.SelectSheet(key)
	if err != nil {
		s.message = errorMessage(err.Error())
	}
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.notify()
	return err
}

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	SessionID   string                `json:"sessionId"`
	Status      models.UploadStatus   `json:"status"`
	InFlight    bool                  `json:"inFlight"`
	Selection   *models.FileSelection `json:"selection,omitempty"`
	Message     Message               `json:"message"`
	Keys        []string              `json:"keys"`
	ActiveKey   string                `json:"activeKey,omitempty"`
	ActiveSheet *models.SheetData     `json:"-"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// CanSubmit reports whether a submit would issue a request.
func (s Snapshot) CanSubmit() bool {
	return s.Selection != nil && !s.InFlight
}

// Tabs returns the decorated sheet buttons.
func (s Snapshot) Tabs(cat *catalog.Catalog) []results.Tab {
	return results.TabsFor(s.Keys, s.ActiveKey, cat)
}

// Snapshot returns the current state. The active sheet is shared, not
// copied; result sets are immutable once installed.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID: s.id,
		Status:    s.status,
		InFlight:  s.inFlight,
		Message:   s.message,
		Keys:      s.results.AvailableKeys(),
		ActiveKey: s.results.ActiveKey(),
		UpdatedAt: s.lastActivity,
	}
	if s.selection != nil {
		sel := *s.selection
		snap.Selection = &sel
	}
	if sheet, ok := s.results.ActiveSheet(); ok {
		snap.ActiveSheet = sheet
	}
	return snap
}

// Touch records activity without changing state.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// LastActivity returns the time of the last interaction.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// IsUploading reports whether a request is in flight.
func (s *Session) IsUploading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *Session) notify() {
	if s.notifier != nil {
		s.notifier.Notify(s.id)
	}
}
