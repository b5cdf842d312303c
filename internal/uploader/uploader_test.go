package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-ocr-inventory/internal/event"
	"go-ocr-inventory/internal/model"
	"go-ocr-inventory/internal/ocrclient"
)

type emitted struct {
	kind model.StatusKind
	text string
}

type fakeReporter struct {
	mu      sync.Mutex
	emitted []emitted
	current map[model.StatusKind]string
}

func newFakeReporter() *fakeReporter {
	return &fakeReporter{current: make(map[model.StatusKind]string)}
}

func (r *fakeReporter) Emit(kind model.StatusKind, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitted = append(r.emitted, emitted{kind: kind, text: text})
	r.current[kind] = text
}

func (r *fakeReporter) Clear(kind model.StatusKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.current, kind)
}

func (r *fakeReporter) count(kind model.StatusKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.emitted {
		if e.kind == kind {
			n++
		}
	}
	return n
}

func (r *fakeReporter) get(kind model.StatusKind) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text, ok := r.current[kind]
	return text, ok
}

type refreshCounter struct {
	mu    sync.Mutex
	calls int
}

func (c *refreshCounter) refresh(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *refreshCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestUploader(backend *ocrclient.MockBackend) (*Uploader, *fakeReporter, *refreshCounter) {
	reporter := newFakeReporter()
	refresh := &refreshCounter{}
	u := New(backend, reporter, Options{Refresh: refresh.refresh})
	return u, reporter, refresh
}

func pdf(name string) *File {
	return &File{Name: name, Content: strings.NewReader("%PDF-1.7 test")}
}

func TestSubmit_NoFileIsNoop(t *testing.T) {
	t.Parallel()

	backend := &ocrclient.MockBackend{}
	u, reporter, refresh := newTestUploader(backend)

	for _, file := range []*File{nil, {Name: ""}, {Name: "   "}} {
		result, err := u.Submit(context.Background(), file)
		require.NoError(t, err)
		require.Nil(t, result)
	}

	assert.Equal(t, model.UploadPhaseIdle, u.Session().Phase)
	assert.True(t, u.Enabled())
	assert.Empty(t, reporter.emitted)
	assert.Zero(t, refresh.count())
	backend.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestSubmit_InvalidFileType(t *testing.T) {
	t.Parallel()

	backend := &ocrclient.MockBackend{}
	u, reporter, refresh := newTestUploader(backend)

	_, err := u.Submit(context.Background(), &File{Name: "notes.txt", Content: strings.NewReader("hello")})
	require.ErrorIs(t, err, model.ErrInvalidFileType)
	assert.Equal(t, model.ErrorKindInvalidFileType, model.KindOf(err))

	session := u.Session()
	assert.Equal(t, model.UploadPhaseFailed, session.Phase)
	assert.NotNil(t, session.FinishedAt)
	assert.True(t, u.Enabled())

	assert.Equal(t, 1, reporter.count(model.StatusError))
	assert.Zero(t, reporter.count(model.StatusSuccess))
	_, hasInfo := reporter.get(model.StatusInfo)
	assert.False(t, hasInfo)
	assert.Zero(t, refresh.count())
	backend.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestSubmit_ExtensionNeedsStem(t *testing.T) {
	t.Parallel()

	backend := &ocrclient.MockBackend{}
	u, _, _ := newTestUploader(backend)

	_, err := u.Submit(context.Background(), pdf(".pdf"))
	require.ErrorIs(t, err, model.ErrInvalidFileType)
	backend.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestSubmit_Success(t *testing.T) {
	t.Parallel()

	backend := &ocrclient.MockBackend{}
	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	reporter := newFakeReporter()
	refresh := &refreshCounter{}
	u := New(backend, reporter, Options{Refresh: refresh.refresh, Bus: bus})

	backend.On("Process", mock.Anything, "Invoice.PDF").
		Return(json.RawMessage(`{"success":true}`), nil).Once()

	result, err := u.Submit(context.Background(), pdf("Invoice.PDF"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(result))

	assert.Equal(t, model.UploadPhaseSucceeded, u.Session().Phase)
	assert.True(t, u.Enabled())
	assert.Equal(t, 1, reporter.count(model.StatusSuccess))
	assert.Zero(t, reporter.count(model.StatusError))
	_, hasInfo := reporter.get(model.StatusInfo)
	assert.False(t, hasInfo)
	assert.Equal(t, 1, refresh.count())
	backend.AssertExpectations(t)

	var phases []model.UploadPhase
	for len(events) > 0 {
		e := <-events
		require.Equal(t, event.TypeUploadPhase, e.Type)
		phases = append(phases, e.Payload.(model.UploadSession).Phase)
	}
	assert.Equal(t, []model.UploadPhase{
		model.UploadPhaseValidating,
		model.UploadPhaseUploading,
		model.UploadPhaseProcessing,
		model.UploadPhaseSucceeded,
	}, phases)
}

func TestSubmit_StripsClientPath(t *testing.T) {
	t.Parallel()

	backend := &ocrclient.MockBackend{}
	u, _, _ := newTestUploader(backend)
	backend.On("Process", mock.Anything, "scan.pdf").Return(json.RawMessage(`{}`), nil).Once()

	_, err := u.Submit(context.Background(), pdf(`C:\fakepath\scan.pdf`))
	require.NoError(t, err)
	backend.AssertExpectations(t)
}

func TestSubmit_Rejected(t *testing.T) {
	t.Parallel()

	backend := &ocrclient.MockBackend{}
	u, reporter, refresh := newTestUploader(backend)

	backend.On("Process", mock.Anything, "scan.pdf").
		Return(nil, &ocrclient.StatusError{Op: "process", StatusCode: http.StatusInternalServerError, Body: "OCR engine crashed"}).Once()

	_, err := u.Submit(context.Background(), pdf("scan.pdf"))
	require.ErrorIs(t, err, model.ErrUploadRejected)
	assert.Equal(t, model.ErrorKindUploadRejected, model.KindOf(err))

	_, isStatus := ocrclient.AsStatusError(err)
	assert.True(t, isStatus)

	assert.Equal(t, model.UploadPhaseFailed, u.Session().Phase)
	assert.True(t, u.Enabled())
	assert.Equal(t, 1, reporter.count(model.StatusError))
	assert.Zero(t, reporter.count(model.StatusSuccess))

	text, ok := reporter.get(model.StatusError)
	require.True(t, ok)
	assert.Contains(t, text, "OCR engine crashed")
	assert.Zero(t, refresh.count())
}

func TestSubmit_TransportFailure(t *testing.T) {
	t.Parallel()

	backend := &ocrclient.MockBackend{}
	u, reporter, _ := newTestUploader(backend)
	backend.On("Process", mock.Anything, "scan.pdf").Return(nil, errors.New("connection refused")).Once()

	_, err := u.Submit(context.Background(), pdf("scan.pdf"))
	require.ErrorIs(t, err, model.ErrUploadRejected)

	text, _ := reporter.get(model.StatusError)
	assert.Contains(t, text, "unreachable")
}

func TestSubmit_SingleActiveSession(t *testing.T) {
	t.Parallel()

	backend := &ocrclient.MockBackend{}
	u, _, _ := newTestUploader(backend)

	entered := make(chan struct{})
	release := make(chan struct{})
	backend.On("Process", mock.Anything, "first.pdf").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(json.RawMessage(`{}`), nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := u.Submit(context.Background(), pdf("first.pdf"))
		done <- err
	}()

	<-entered
	assert.False(t, u.Enabled())
	assert.Equal(t, model.UploadPhaseProcessing, u.Session().Phase)

	_, err := u.Submit(context.Background(), pdf("second.pdf"))
	require.ErrorIs(t, err, model.ErrUploadInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, u.Enabled())
	backend.AssertNotCalled(t, "Process", mock.Anything, "second.pdf")
}

func TestSubmit_PanicLeavesControlEnabled(t *testing.T) {
	t.Parallel()

	backend := &ocrclient.MockBackend{}
	u, reporter, _ := newTestUploader(backend)
	backend.On("Process", mock.Anything, "scan.pdf").
		Run(func(mock.Arguments) { panic("transport exploded") }).
		Return(nil, nil).Once()

	require.Panics(t, func() {
		_, _ = u.Submit(context.Background(), pdf("scan.pdf"))
	})

	assert.Equal(t, model.UploadPhaseFailed, u.Session().Phase)
	assert.True(t, u.Enabled())
	_, hasInfo := reporter.get(model.StatusInfo)
	assert.False(t, hasInfo)
}

func TestNew_NormalizesExtension(t *testing.T) {
	t.Parallel()

	u := New(&ocrclient.MockBackend{}, newFakeReporter(), Options{Extension: "PDF"})
	assert.Equal(t, ".pdf", u.Extension())
}

// gatedReporter holds the "Processing" progress message until proceed is
// closed.
type gatedReporter struct {
	*fakeReporter
	emitting chan struct{}
	proceed  chan struct{}
	once     sync.Once
}

func (r *gatedReporter) Emit(kind model.StatusKind, text string) {
	if kind == model.StatusInfo && strings.HasPrefix(text, "Processing") {
		r.once.Do(func() { close(r.emitting) })
		<-r.proceed
	}
	r.fakeReporter.Emit(kind, text)
}

// earlyFailProcessor reads the body in the background and fails as soon as
// the progress message is on its way.
type earlyFailProcessor struct {
	emitting <-chan struct{}
}

func (p earlyFailProcessor) Process(_ context.Context, _ string, content io.Reader) (json.RawMessage, error) {
	go func() { _, _ = io.Copy(io.Discard, content) }()
	<-p.emitting
	return nil, errors.New("connection reset")
}

func TestSubmit_LateProgressMessageIsCleared(t *testing.T) {
	t.Parallel()

	reporter := &gatedReporter{
		fakeReporter: newFakeReporter(),
		emitting:     make(chan struct{}),
		proceed:      make(chan struct{}),
	}
	u := New(earlyFailProcessor{emitting: reporter.emitting}, reporter, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := u.Submit(context.Background(), pdf("scan.pdf"))
		done <- err
	}()

	<-reporter.emitting
	time.Sleep(20 * time.Millisecond)
	close(reporter.proceed)

	require.ErrorIs(t, <-done, model.ErrUploadRejected)
	_, shown := reporter.get(model.StatusInfo)
	assert.False(t, shown)
	assert.True(t, u.Enabled())
}
