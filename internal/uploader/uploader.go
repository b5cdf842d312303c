// Package uploader submits local files to the OCR service, allowing a single
// upload at a time and reporting every outcome through the status slots.
package uploader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-ocr-inventory/internal/event"
	"go-ocr-inventory/internal/metrics"
	"go-ocr-inventory/internal/model"
	"go-ocr-inventory/internal/ocrclient"
	"go-ocr-inventory/internal/util"
)

const DefaultExtension = ".pdf"

// File is a user-selected file. Content is streamed, never inspected.
type File struct {
	Name    string
	Content io.Reader
}

// Processor sends a file to the OCR service and returns its JSON result.
type Processor interface {
	Process(ctx context.Context, name string, content io.Reader) (json.RawMessage, error)
}

// Reporter receives the user-facing messages of an upload.
type Reporter interface {
	Emit(kind model.StatusKind, text string)
	Clear(kind model.StatusKind)
}

// RefreshFunc re-fetches the listing after a successful upload.
type RefreshFunc func(ctx context.Context) error

type Options struct {
	Extension string
	Refresh   RefreshFunc
	Bus       event.Bus
}

type Uploader struct {
	processor Processor
	reporter  Reporter
	extension string
	refresh   RefreshFunc
	bus       event.Bus

	mu      sync.Mutex
	session model.UploadSession

	// infoMu orders progress messages against the final Clear, so a late
	// phase change cannot leave a progress message behind.
	infoMu sync.Mutex
}

func New(processor Processor, reporter Reporter, opts Options) *Uploader {
	ext := strings.TrimSpace(opts.Extension)
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return &Uploader{
		processor: processor,
		reporter:  reporter,
		extension: strings.ToLower(ext),
		refresh:   opts.Refresh,
		bus:       opts.Bus,
		session:   model.UploadSession{Phase: model.UploadPhaseIdle},
	}
}

func (u *Uploader) Extension() string {
	return u.extension
}

// Session returns a copy of the current upload session.
func (u *Uploader) Session() model.UploadSession {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.session
}

// Enabled reports whether a new upload may start.
func (u *Uploader) Enabled() bool {
	return !u.Session().Active()
}

// Submit validates and uploads file. A nil file or an empty name is a no-op.
// On success the listing is refreshed before Submit returns.
func (u *Uploader) Submit(ctx context.Context, file *File) (json.RawMessage, error) {
	if file == nil || strings.TrimSpace(file.Name) == "" {
		return nil, nil
	}

	u.mu.Lock()
	if u.session.Active() {
		u.mu.Unlock()
		return nil, model.ErrUploadInProgress
	}
	now := time.Now().UTC()
	u.session = model.UploadSession{
		ID:        uuid.NewString(),
		FileName:  file.Name,
		Phase:     model.UploadPhaseValidating,
		StartedAt: &now,
	}
	snapshot := u.session
	u.mu.Unlock()
	u.publish(snapshot)

	result, err := u.run(ctx, file)
	if err != nil {
		return nil, err
	}

	if u.refresh != nil {
		if refreshErr := u.refresh(ctx); refreshErr != nil {
			slog.Warn("refresh after upload failed", "file", file.Name, "error", refreshErr)
		}
	}

	return result, nil
}

func (u *Uploader) run(ctx context.Context, file *File) (result json.RawMessage, err error) {
	started := time.Now()
	counter := &countingReader{reader: file.Content}
	finished := false

	defer func() {
		if !finished {
			u.finish(model.UploadPhaseFailed, "upload aborted")
			metrics.RecordUpload(string(model.UploadPhaseFailed), counter.Count(), time.Since(started))
		}
		u.infoMu.Lock()
		u.reporter.Clear(model.StatusInfo)
		u.infoMu.Unlock()
	}()

	name, cleanErr := util.CleanUploadName(file.Name)
	if cleanErr != nil || !util.HasExtensionFold(name, u.extension) {
		text := fmt.Sprintf("Only %s files can be processed", strings.ToUpper(strings.TrimPrefix(u.extension, ".")))
		finished = true
		u.finish(model.UploadPhaseFailed, text)
		u.reporter.Emit(model.StatusError, text)
		metrics.RecordUpload("invalid", 0, 0)
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidFileType, file.Name)
	}

	u.advance(model.UploadPhaseUploading, fmt.Sprintf("Uploading %s...", name))
	counter.onEOF = func() {
		u.advance(model.UploadPhaseProcessing, fmt.Sprintf("Processing %s...", name))
	}

	result, err = u.processor.Process(ctx, name, counter)
	if err != nil {
		finished = true
		u.finish(model.UploadPhaseFailed, "upload failed")
		u.reporter.Emit(model.StatusError, fmt.Sprintf("Upload of %s failed: %s", name, ocrclient.Describe(err)))
		metrics.RecordUpload(string(model.UploadPhaseFailed), counter.Count(), time.Since(started))
		slog.Warn("upload rejected", "file", name, "error", err)
		return nil, fmt.Errorf("%w: %w", model.ErrUploadRejected, err)
	}

	finished = true
	u.finish(model.UploadPhaseSucceeded, "processed")
	u.reporter.Emit(model.StatusSuccess, fmt.Sprintf("%s processed successfully", name))
	metrics.RecordUpload(string(model.UploadPhaseSucceeded), counter.Count(), time.Since(started))
	slog.Info("upload processed", "file", name, "bytes", counter.Count())

	return result, nil
}

// advance moves an active session to the next in-flight phase and shows
// the matching progress message.
func (u *Uploader) advance(phase model.UploadPhase, text string) {
	u.infoMu.Lock()
	defer u.infoMu.Unlock()

	u.mu.Lock()
	if !u.session.Active() || u.session.Phase == phase {
		u.mu.Unlock()
		return
	}
	u.session.Phase = phase
	u.session.Message = text
	snapshot := u.session
	u.mu.Unlock()

	u.reporter.Emit(model.StatusInfo, text)
	u.publish(snapshot)
}

func (u *Uploader) finish(phase model.UploadPhase, text string) {
	now := time.Now().UTC()

	u.mu.Lock()
	u.session.Phase = phase
	u.session.Message = text
	u.session.FinishedAt = &now
	snapshot := u.session
	u.mu.Unlock()

	u.publish(snapshot)
}

func (u *Uploader) publish(session model.UploadSession) {
	if u.bus == nil {
		return
	}
	u.bus.Publish(event.New(event.TypeUploadPhase, session))
}

// countingReader counts streamed bytes and fires onEOF once the whole body
// has been handed to the transport.
type countingReader struct {
	reader io.Reader
	onEOF  func()

	mu    sync.Mutex
	count int64
	eof   bool
}

func (r *countingReader) Read(p []byte) (int, error) {
	if r.reader == nil {
		r.signalEOF()
		return 0, io.EOF
	}

	n, err := r.reader.Read(p)

	r.mu.Lock()
	r.count += int64(n)
	r.mu.Unlock()

	if err == io.EOF {
		r.signalEOF()
	}
	return n, err
}

func (r *countingReader) signalEOF() {
	r.mu.Lock()
	if r.eof {
		r.mu.Unlock()
		return
	}
	r.eof = true
	onEOF := r.onEOF
	r.mu.Unlock()

	if onEOF != nil {
		onEOF()
	}
}

func (r *countingReader) Count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
