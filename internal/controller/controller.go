// Package controller keeps the displayed inventory of OCR-processed
// documents in sync with the OCR service and coordinates uploads,
// deletions and the user-facing status messages around them.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go-ocr-inventory/internal/event"
	"go-ocr-inventory/internal/grouping"
	"go-ocr-inventory/internal/metrics"
	"go-ocr-inventory/internal/model"
	"go-ocr-inventory/internal/ocrclient"
	"go-ocr-inventory/internal/poller"
	"go-ocr-inventory/internal/status"
	"go-ocr-inventory/internal/uploader"
)

// Backend is the part of the OCR service the controller talks to.
type Backend interface {
	ListFiles(ctx context.Context) ([]model.RemoteFileRecord, error)
	Process(ctx context.Context, name string, content io.Reader) (json.RawMessage, error)
	DeleteDirectory(ctx context.Context, dir string) error
}

type Options struct {
	Grouping     grouping.Options
	Extension    string
	StatusPolicy status.Policy
	PollInterval time.Duration
	Bus          event.Bus
}

type Controller struct {
	backend  Backend
	grouping grouping.Options
	bus      event.Bus
	reporter *status.Reporter
	poller   *poller.Poller
	uploader *uploader.Uploader

	mu        sync.RWMutex
	inventory model.Inventory

	unmountOnce sync.Once
}

func New(backend Backend, opts Options) *Controller {
	policy := opts.StatusPolicy
	if policy == (status.Policy{}) {
		policy = status.DefaultPolicy()
	}

	c := &Controller{
		backend:  backend,
		grouping: opts.Grouping,
		bus:      opts.Bus,
		reporter: status.NewReporter(policy, opts.Bus),
	}
	c.poller = poller.New(c.fetch, c.reconcile, c.listingFailed, opts.PollInterval)
	c.uploader = uploader.New(backend, c.reporter, uploader.Options{
		Extension: opts.Extension,
		Refresh:   c.refresh,
		Bus:       opts.Bus,
	})

	return c
}

// Mount fetches the listing right away and then keeps polling until Unmount.
func (c *Controller) Mount(ctx context.Context) error {
	if err := c.poller.Start(ctx); err != nil {
		return fmt.Errorf("mount controller: %w", err)
	}
	slog.Info("inventory polling started", "interval", c.poller.Interval())
	return nil
}

// Unmount stops polling and drops every pending status message. Results of
// fetches still in flight are discarded.
func (c *Controller) Unmount() {
	c.unmountOnce.Do(func() {
		c.poller.Stop()
		c.reporter.Close()
		slog.Info("inventory polling stopped")
	})
}

// Inventory returns the last reconciled display state.
func (c *Controller) Inventory() model.Inventory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inventory
}

func (c *Controller) Group(key string) (model.DocumentGroup, bool) {
	return c.Inventory().Group(key)
}

func (c *Controller) Messages() []model.StatusMessage {
	return c.reporter.Messages()
}

func (c *Controller) Message(kind model.StatusKind) (model.StatusMessage, bool) {
	return c.reporter.Get(kind)
}

func (c *Controller) Session() model.UploadSession {
	return c.uploader.Session()
}

// UploadEnabled reports whether the upload control accepts a new file.
func (c *Controller) UploadEnabled() bool {
	return c.uploader.Enabled()
}

func (c *Controller) AcceptedExtension() string {
	return c.uploader.Extension()
}

// Submit uploads file and refreshes the inventory once it is processed.
func (c *Controller) Submit(ctx context.Context, file *uploader.File) (json.RawMessage, error) {
	return c.uploader.Submit(ctx, file)
}

// FetchNow runs a reconciliation outside the polling schedule.
func (c *Controller) FetchNow(ctx context.Context) error {
	err := c.poller.FetchNow(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, poller.ErrStopped), ctx.Err() != nil:
		return err
	default:
		return fmt.Errorf("%w: %w", model.ErrListingUnavailable, err)
	}
}

func (c *Controller) refresh(ctx context.Context) error {
	if err := c.FetchNow(ctx); err != nil && !errors.Is(err, poller.ErrStopped) {
		return err
	}
	return nil
}

func (c *Controller) fetch(ctx context.Context) ([]model.RemoteFileRecord, error) {
	started := time.Now()
	records, err := c.backend.ListFiles(ctx)
	metrics.RecordPoll(time.Since(started), err == nil)
	return records, err
}

// reconcile replaces the displayed inventory with the grouping of records.
// It is the only writer of the inventory.
func (c *Controller) reconcile(records []model.RemoteFileRecord) {
	inventory := model.Inventory{
		Groups:       grouping.GroupWith(records, c.grouping),
		RecordCount:  len(records),
		ReconciledAt: time.Now().UTC(),
	}

	c.mu.Lock()
	c.inventory = inventory
	c.mu.Unlock()

	metrics.SetInventory(len(inventory.Groups), inventory.RecordCount, inventory.ReconciledAt)
	c.publish(event.TypeInventoryReconciled, inventory)
	slog.Debug("inventory reconciled", "groups", len(inventory.Groups), "records", inventory.RecordCount)
}

func (c *Controller) listingFailed(err error) {
	slog.Warn("file listing unavailable", "error", err)
	c.reporter.Emit(model.StatusError, "Could not load the document list: "+ocrclient.Describe(err))
	c.publish(event.TypeListingFailed, map[string]string{
		"kind":  string(model.ErrorKindListingUnavailable),
		"error": err.Error(),
	})
}

func (c *Controller) publish(eventType event.Type, payload any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(event.New(eventType, payload))
}
