package upload

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/netx"
)

var testTypes = []string{"image/jpeg", "image/png", "image/webp", "application/pdf", "text/plain", "text/csv"}

func testConfig() Config {
	return Config{
		ScopeLabel:          "request",
		MaxCount:            10,
		MaxFileSizeBytes:    10 << 20,
		AllowedContentTypes: testTypes,
	}
}

type sizedFile struct {
	name string
	ct   string
	size int64
}

func (f sizedFile) Name() string        { return f.name }
func (f sizedFile) Size() int64         { return f.size }
func (f sizedFile) ContentType() string { return f.ct }
func (f sizedFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(io.LimitReader(strings.NewReader(strings.Repeat("x", 64)), f.size)), nil
}

func textFile(name string) File {
	return NewBytesFile(name, "text/plain", []byte("0123456789"))
}

// fakeAPI stands in for the upload-url and confirm endpoints.
type fakeAPI struct {
	mu        sync.Mutex
	creates   int
	replaced  []int64
	confirms  []int64
	completed int

	createFn  func(ctx context.Context, call int) error
	confirmFn func(ctx context.Context, id int64) error
}

func (a *fakeAPI) collaborators() Collaborators {
	return Collaborators{
		CreateUploadURL: func(ctx context.Context, f File, replaces int64) (models.UploadURL, error) {
			a.mu.Lock()
			a.creates++
			a.replaced = append(a.replaced, replaces)
			n := a.creates
			fn := a.createFn
			a.mu.Unlock()

			if fn != nil {
				if err := fn(ctx, n); err != nil {
					return models.UploadURL{}, err
				}
			}
			id := int64(100 + n)
			return models.UploadURL{
				AttachmentID: id,
				UploadURL:    fmt.Sprintf("https://storage.test/obj/%d?sig=%d", id, n),
			}, nil
		},
		ConfirmUpload: func(ctx context.Context, id int64) error {
			a.mu.Lock()
			a.confirms = append(a.confirms, id)
			fn := a.confirmFn
			a.mu.Unlock()
			if fn != nil {
				return fn(ctx, id)
			}
			return nil
		},
		OnCompleted: func() {
			a.mu.Lock()
			a.completed++
			a.mu.Unlock()
		},
	}
}

func (a *fakeAPI) replacements() []int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int64(nil), a.replaced...)
}

func (a *fakeAPI) counts() (creates, confirms, completed int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.creates, len(a.confirms), a.completed
}

type putFunc func(ctx context.Context, call int, url string, src netx.Source, progress netx.ProgressFunc) error

// fakeTransfer records PUTs. Without fn it reports half, then full progress
// and succeeds.
type fakeTransfer struct {
	mu   sync.Mutex
	urls []string
	fn   putFunc
}

func (f *fakeTransfer) Put(ctx context.Context, url string, src netx.Source, progress netx.ProgressFunc) error {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	n := len(f.urls)
	fn := f.fn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, n, url, src, progress)
	}
	if progress != nil {
		progress(src.Size()/2, src.Size())
		progress(src.Size(), src.Size())
	}
	return nil
}

func (f *fakeTransfer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

// blockUntilCancelled parks the PUT until its context ends.
func blockUntilCancelled(started chan<- struct{}) putFunc {
	return func(ctx context.Context, _ int, _ string, _ netx.Source, _ netx.ProgressFunc) error {
		if started != nil {
			started <- struct{}{}
		}
		<-ctx.Done()
		return fmt.Errorf("put aborted: %w", ctx.Err())
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) progressOf(id string) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []int
	for _, ev := range l.events {
		if ev.Task.ID == id && !ev.Removed {
			out = append(out, ev.Task.Progress)
		}
	}
	return out
}

func (l *eventLog) statusesOf(id string) []Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Status
	for _, ev := range l.events {
		if ev.Task.ID != id || ev.Removed {
			continue
		}
		if len(out) == 0 || out[len(out)-1] != ev.Task.Status {
			out = append(out, ev.Task.Status)
		}
	}
	return out
}
