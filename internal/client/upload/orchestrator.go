// Package upload runs attachment uploads for one scope: validation against
// the scope's limits, upload-URL acquisition, the direct PUT to object
// storage, confirmation, and user-driven retry, cancel and dismiss.
package upload

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/logging"
	"github.com/dmitrijs2005/supportdesk/internal/netx"
)

const (
	// DefaultRemovalDelay is how long a done task stays visible.
	DefaultRemovalDelay = 1200 * time.Millisecond

	issuedProgress = 5
	maxTransferPct = 99
)

// Config holds the per-scope limits.
type Config struct {
	ScopeLabel          string
	ExistingCount       int
	MaxCount            int
	MaxFileSizeBytes    int64
	AllowedContentTypes []string
}

// Collaborators are the server calls the upload sequence depends on.
// CreateUploadURL gets the attachment id of the previous attempt, or zero.
// OnCompleted may be nil.
type Collaborators struct {
	CreateUploadURL func(ctx context.Context, f File, replaces int64) (models.UploadURL, error)
	ConfirmUpload   func(ctx context.Context, attachmentID int64) error
	OnCompleted     func()
}

// Transferer moves file bytes to a pre-signed URL.
type Transferer interface {
	Put(ctx context.Context, url string, src netx.Source, progress netx.ProgressFunc) error
}

type Option func(*Orchestrator)

func WithTransferer(t Transferer) Option {
	return func(o *Orchestrator) { o.transfer = t }
}

func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithRemovalDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.removalDelay = d }
}

// WithListener registers fn for task events. fn runs outside the
// orchestrator's lock and may be called from several goroutines at once.
func WithListener(fn func(Event)) Option {
	return func(o *Orchestrator) { o.listener = fn }
}

func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

type entry struct {
	task    Task
	cancel  context.CancelFunc
	removal *time.Timer
	// replaces is the attachment left behind by the previous attempt.
	replaces int64
}

// Orchestrator is safe for concurrent use. Every task mutation happens under
// one mutex and replaces the entry for that task id.
type Orchestrator struct {
	cfg          Config
	allowed      map[string]struct{}
	collab       Collaborators
	transfer     Transferer
	log          logging.Logger
	removalDelay time.Duration
	listener     func(Event)
	newID        func() string
	now          func() time.Time

	mu       sync.Mutex
	tasks    map[string]*entry
	order    []string
	existing int
	closed   bool
	wg       sync.WaitGroup
}

func New(cfg Config, collab Collaborators, opts ...Option) (*Orchestrator, error) {
	if cfg.MaxCount <= 0 {
		return nil, fmt.Errorf("%w: max count must be positive", ErrInvalidSettings)
	}
	if cfg.MaxFileSizeBytes <= 0 {
		return nil, fmt.Errorf("%w: max file size must be positive", ErrInvalidSettings)
	}
	if collab.CreateUploadURL == nil || collab.ConfirmUpload == nil {
		return nil, fmt.Errorf("%w: create and confirm calls are required", ErrInvalidSettings)
	}
	if cfg.ScopeLabel == "" {
		cfg.ScopeLabel = "scope"
	}

	o := &Orchestrator{
		cfg:          cfg,
		allowed:      make(map[string]struct{}, len(cfg.AllowedContentTypes)),
		collab:       collab,
		log:          logging.Discard(),
		removalDelay: DefaultRemovalDelay,
		newID:        uuid.NewString,
		now:          time.Now,
		tasks:        make(map[string]*entry),
		existing:     max(0, cfg.ExistingCount),
	}
	for _, ct := range cfg.AllowedContentTypes {
		o.allowed[normalizeType(ct)] = struct{}{}
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.transfer == nil {
		o.transfer = netx.NewTransferer(nil)
	}
	o.log = o.log.With("scope", cfg.ScopeLabel)
	return o, nil
}

func normalizeType(ct string) string {
	return strings.ToLower(strings.TrimSpace(ct))
}

// Submit validates each file and starts an upload for every accepted one.
// The slot budget is computed once for the batch; files past it are rejected
// one by one. Returned snapshots follow the order of files.
func (o *Orchestrator) Submit(files ...File) []Task {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}

	slots := o.remainingLocked()
	out := make([]Task, 0, len(files))
	var launch []func()
	for _, f := range files {
		t := Task{ID: o.newID(), File: f, CreatedAt: o.now()}

		if verr := o.validate(f, slots); verr != nil {
			t.Status = StatusError
			t.Error = verr.Error()
			o.insertLocked(&entry{task: t})
			o.log.Info(context.Background(), "file rejected", "task", t.ID, "file", f.Name(), "reason", verr.Error())
			out = append(out, t)
			continue
		}

		slots--
		t.Status = StatusUploading
		t.Retryable = true
		t.Attempt = 1
		e := &entry{task: t}
		o.insertLocked(e)
		launch = append(launch, o.prepareLocked(e))
		out = append(out, e.task)
	}
	o.mu.Unlock()

	for _, t := range out {
		o.emit(Event{Task: t})
	}
	for _, start := range launch {
		start()
	}
	return out
}

// validate checks slots, then size, then type.
func (o *Orchestrator) validate(f File, slots int) *ValidationError {
	if slots <= 0 {
		return limitReached(o.cfg.ScopeLabel, o.cfg.MaxCount)
	}
	if f.Size() > o.cfg.MaxFileSizeBytes {
		return tooLarge(f.Size(), o.cfg.MaxFileSizeBytes)
	}
	if _, ok := o.allowed[normalizeType(f.ContentType())]; !ok {
		return typeNotAllowed(f.ContentType())
	}
	return nil
}

// Retry restarts an error or cancelled task from a fresh upload URL. The
// task keeps its id; validation rejections cannot be retried.
func (o *Orchestrator) Retry(id string) (Task, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Task{}, ErrClosed
	}
	e, ok := o.tasks[id]
	if !ok {
		o.mu.Unlock()
		return Task{}, ErrTaskNotFound
	}
	if (e.task.Status != StatusError && e.task.Status != StatusCancelled) || !e.task.Retryable {
		t := e.task
		o.mu.Unlock()
		return t, ErrNotRetryable
	}
	if o.remainingLocked() <= 0 {
		t := e.task
		o.mu.Unlock()
		return t, limitReached(o.cfg.ScopeLabel, o.cfg.MaxCount)
	}

	e.task.Status = StatusUploading
	e.task.Progress = 0
	e.task.Error = ""
	if e.task.AttachmentID != 0 {
		e.replaces = e.task.AttachmentID
	}
	e.task.AttachmentID = 0
	e.task.Attempt++
	start := o.prepareLocked(e)
	t := e.task
	o.mu.Unlock()

	o.log.Info(context.Background(), "retrying upload", "task", id, "attempt", t.Attempt)
	o.emit(Event{Task: t})
	start()
	return t, nil
}

// Cancel signals an uploading or confirming task to stop. The task settles
// into cancelled once the in-flight call returns; a confirm that the server
// already accepted still ends the task as done.
func (o *Orchestrator) Cancel(id string) error {
	o.mu.Lock()
	e, ok := o.tasks[id]
	if !ok {
		o.mu.Unlock()
		return ErrTaskNotFound
	}
	if !e.task.Status.Active() || e.cancel == nil {
		o.mu.Unlock()
		return ErrNotCancellable
	}
	cancel := e.cancel
	o.mu.Unlock()

	o.log.Debug(context.Background(), "cancel requested", "task", id)
	cancel()
	return nil
}

// Dismiss drops a finished task from the list.
func (o *Orchestrator) Dismiss(id string) error {
	o.mu.Lock()
	e, ok := o.tasks[id]
	if !ok {
		o.mu.Unlock()
		return ErrTaskNotFound
	}
	if !e.task.Status.Terminal() {
		o.mu.Unlock()
		return ErrNotDismissable
	}
	o.removeLocked(id)
	t := e.task
	o.mu.Unlock()

	o.emit(Event{Task: t, Removed: true})
	return nil
}

// Tasks returns snapshots of all visible tasks, newest first.
func (o *Orchestrator) Tasks() []Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Task, 0, len(o.order))
	for i := len(o.order) - 1; i >= 0; i-- {
		out = append(out, o.tasks[o.order[i]].task)
	}
	return out
}

func (o *Orchestrator) Task(id string) (Task, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.tasks[id]
	if !ok {
		return Task{}, false
	}
	return e.task, true
}

// Remaining is max(0, max - existing - in-flight).
func (o *Orchestrator) Remaining() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remainingLocked()
}

// InFlight counts uploading and confirming tasks.
func (o *Orchestrator) InFlight() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlightLocked()
}

// SetExistingCount records the server-side count after a list refresh.
func (o *Orchestrator) SetExistingCount(n int) {
	o.mu.Lock()
	o.existing = max(0, n)
	o.mu.Unlock()
}

// SyncExisting recounts the slots held on the server from a fresh list:
// ACTIVE and PENDING rows, except PENDING rows of this orchestrator's own
// running tasks, which are already counted as in flight.
func (o *Orchestrator) SyncExisting(list []models.Attachment) {
	o.mu.Lock()
	defer o.mu.Unlock()

	running := make(map[int64]struct{})
	for _, e := range o.tasks {
		if e.task.Status.Active() && e.task.AttachmentID != 0 {
			running[e.task.AttachmentID] = struct{}{}
		}
	}
	n := 0
	for _, a := range list {
		switch a.State {
		case models.AttachmentActive:
			n++
		case models.AttachmentPending:
			if _, ok := running[a.ID]; !ok {
				n++
			}
		}
	}
	o.existing = n
}

func (o *Orchestrator) Config() Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	c := o.cfg
	c.ExistingCount = o.existing
	c.AllowedContentTypes = slices.Clone(o.cfg.AllowedContentTypes)
	return c
}

// Wait blocks until no upload sequence is running.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels every running upload, stops pending removals and waits for
// the upload goroutines to return.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.wg.Wait()
		return
	}
	o.closed = true
	for _, e := range o.tasks {
		if e.cancel != nil {
			e.cancel()
		}
		if e.removal != nil {
			e.removal.Stop()
		}
	}
	o.mu.Unlock()
	o.wg.Wait()
}

func (o *Orchestrator) remainingLocked() int {
	return max(0, o.cfg.MaxCount-o.existing-o.inFlightLocked())
}

func (o *Orchestrator) inFlightLocked() int {
	n := 0
	for _, e := range o.tasks {
		if e.task.Status.Active() {
			n++
		}
	}
	return n
}

func (o *Orchestrator) insertLocked(e *entry) {
	o.tasks[e.task.ID] = e
	o.order = append(o.order, e.task.ID)
}

func (o *Orchestrator) removeLocked(id string) {
	e, ok := o.tasks[id]
	if !ok {
		return
	}
	if e.removal != nil {
		e.removal.Stop()
	}
	delete(o.tasks, id)
	o.order = slices.DeleteFunc(o.order, func(s string) bool { return s == id })
}

// prepareLocked arms a new attempt for e and returns the function that
// launches it. Launching after the submit event is emitted keeps each task's
// events in order.
func (o *Orchestrator) prepareLocked(e *entry) func() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	o.wg.Add(1)
	id, attempt, f, replaces := e.task.ID, e.task.Attempt, e.task.File, e.replaces
	return func() { go o.run(ctx, id, attempt, f, replaces) }
}

func (o *Orchestrator) emit(ev Event) {
	if o.listener != nil {
		o.listener(ev)
	}
}

// update applies fn to the task if attempt is still current. It reports
// whether the update happened.
func (o *Orchestrator) update(id string, attempt int, fn func(e *entry)) (Task, bool) {
	o.mu.Lock()
	e, ok := o.tasks[id]
	if !ok || e.task.Attempt != attempt {
		o.mu.Unlock()
		return Task{}, false
	}
	fn(e)
	t := e.task
	o.mu.Unlock()

	o.emit(Event{Task: t})
	return t, true
}

func (o *Orchestrator) run(ctx context.Context, id string, attempt int, f File, replaces int64) {
	defer o.wg.Done()
	log := o.log.With("task", id, "attempt", attempt, "file", f.Name())

	log.Debug(ctx, "requesting upload url", "replaces", replaces)
	issued, err := o.collab.CreateUploadURL(ctx, f, replaces)
	if err != nil {
		o.fail(ctx, log, id, attempt, PhaseCreateURL, err)
		return
	}
	o.update(id, attempt, func(e *entry) {
		if e.task.AttachmentID == 0 {
			e.task.AttachmentID = issued.AttachmentID
		}
		e.replaces = 0
		e.task.Progress = issuedProgress
	})
	if ctx.Err() != nil {
		o.fail(ctx, log, id, attempt, PhaseCreateURL, ctx.Err())
		return
	}

	log.Debug(ctx, "transferring", "attachment", issued.AttachmentID, "bytes", f.Size())
	err = o.transfer.Put(ctx, issued.UploadURL, f, func(sent, total int64) {
		pct := transferPercent(sent, total)
		o.update(id, attempt, func(e *entry) {
			if e.task.Status == StatusUploading && pct > e.task.Progress {
				e.task.Progress = pct
			}
		})
	})
	if err != nil {
		o.fail(ctx, log, id, attempt, PhaseTransfer, err)
		return
	}
	if ctx.Err() != nil {
		o.fail(ctx, log, id, attempt, PhaseTransfer, ctx.Err())
		return
	}

	o.update(id, attempt, func(e *entry) {
		e.task.Status = StatusConfirming
		e.task.Progress = 100
	})

	log.Debug(ctx, "confirming", "attachment", issued.AttachmentID)
	if err := o.collab.ConfirmUpload(ctx, issued.AttachmentID); err != nil {
		o.fail(ctx, log, id, attempt, PhaseConfirm, err)
		return
	}

	_, ok := o.update(id, attempt, func(e *entry) {
		e.task.Status = StatusDone
		e.task.Progress = 100
		e.task.Retryable = false
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
		if !o.closed {
			e.removal = time.AfterFunc(o.removalDelay, func() { o.expire(id, attempt) })
		}
	})
	if !ok {
		return
	}
	log.Info(ctx, "upload complete", "attachment", issued.AttachmentID)
	if o.collab.OnCompleted != nil {
		o.collab.OnCompleted()
	}
}

func (o *Orchestrator) expire(id string, attempt int) {
	o.mu.Lock()
	e, ok := o.tasks[id]
	if !ok || e.task.Attempt != attempt || e.task.Status != StatusDone {
		o.mu.Unlock()
		return
	}
	o.removeLocked(id)
	t := e.task
	o.mu.Unlock()

	o.emit(Event{Task: t, Removed: true})
}

// fail settles the task as cancelled when the attempt's context was
// cancelled, and as error otherwise.
func (o *Orchestrator) fail(ctx context.Context, log logging.Logger, id string, attempt int, phase Phase, err error) {
	cancelled := ctx.Err() != nil
	o.update(id, attempt, func(e *entry) {
		if cancelled {
			e.task.Status = StatusCancelled
			e.task.Progress = 0
			e.task.Error = MsgCancelled
		} else {
			e.task.Status = StatusError
			e.task.Error = FailureMessage(phase, err)
		}
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
	})

	if cancelled {
		log.Info(ctx, "upload cancelled", "phase", phase.String())
		return
	}
	log.Warn(ctx, "upload failed", "phase", phase.String(), "error", err)
}

// transferPercent is round(sent*100/total) held between the issued floor and
// 99; 100 is reserved for the confirming step.
func transferPercent(sent, total int64) int {
	if total <= 0 {
		return issuedProgress
	}
	pct := int(math.Round(float64(sent) * 100 / float64(total)))
	return min(maxTransferPct, max(issuedProgress, pct))
}
