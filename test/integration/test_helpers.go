//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-ocr-inventory/internal/config"
	"go-ocr-inventory/internal/confirm"
	"go-ocr-inventory/internal/controller"
	"go-ocr-inventory/internal/event"
	"go-ocr-inventory/internal/grouping"
	"go-ocr-inventory/internal/handler"
	"go-ocr-inventory/internal/model"
	"go-ocr-inventory/internal/ocrclient"
	"go-ocr-inventory/internal/router"
	"go-ocr-inventory/internal/status"
	"go-ocr-inventory/internal/websocket"
)

// fakeOCR is an in-memory stand-in for the OCR service. Processing a PDF
// produces "<stem>/<stem>_results.json" and "<stem>/<stem>_text.txt".
type fakeOCR struct {
	mu          sync.Mutex
	files       map[string]int64
	listingDown bool
	rejectNext  string
}

func newFakeOCR(t *testing.T) (*fakeOCR, *httptest.Server) {
	t.Helper()

	fake := &fakeOCR{files: map[string]int64{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /files", fake.list)
	mux.HandleFunc("POST /process", fake.process)
	mux.HandleFunc("DELETE /files/{dir...}", fake.remove)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return fake, server
}

func (f *fakeOCR) add(filePath string, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[filePath] = size
}

func (f *fakeOCR) setListingDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listingDown = down
}

func (f *fakeOCR) rejectNextUpload(detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectNext = detail
}

func (f *fakeOCR) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.files))
	for p := range f.files {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func (f *fakeOCR) list(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listingDown {
		http.Error(w, `{"detail":"storage offline"}`, http.StatusServiceUnavailable)
		return
	}

	records := make([]model.RemoteFileRecord, 0, len(f.files))
	for p, size := range f.files {
		records = append(records, model.RemoteFileRecord{Name: path.Base(p), Path: p, Size: size})
	}
	slices.SortFunc(records, func(a, b model.RemoteFileRecord) int { return strings.Compare(a.Path, b.Path) })

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

func (f *fakeOCR) process(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile(ocrclient.FileField)
	if err != nil {
		http.Error(w, `{"detail":"missing file"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	size, _ := io.Copy(io.Discard, file)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rejectNext != "" {
		detail := f.rejectNext
		f.rejectNext = ""
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
		return
	}

	stem := strings.TrimSuffix(header.Filename, path.Ext(header.Filename))
	f.files[stem+"/"+stem+"_results.json"] = size
	f.files[stem+"/"+stem+"_text.txt"] = size / 2

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"document": stem, "pages": 1})
}

func (f *fakeOCR) remove(w http.ResponseWriter, r *http.Request) {
	dir := r.PathValue("dir")

	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	for p := range f.files {
		if strings.HasPrefix(p, dir+"/") {
			delete(f.files, p)
			removed++
		}
	}
	if removed == 0 {
		http.Error(w, `{"detail":"directory not found"}`, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type console struct {
	server     *httptest.Server
	backend    *fakeOCR
	controller *controller.Controller
}

func newConsole(t *testing.T, configure func(cfg *config.Config)) *console {
	t.Helper()

	backend, backendServer := newFakeOCR(t)

	cfg := config.Default()
	cfg.BackendURL = backendServer.URL
	cfg.PollInterval = time.Hour
	cfg.RateLimitRPM = 1000
	cfg.UploadRateLimitRPM = 1000
	cfg.ConfirmSecret = "integration-secret"
	if configure != nil {
		configure(cfg)
	}
	require.NoError(t, cfg.Validate())

	client := ocrclient.New(ocrclient.Config{
		BaseURL:       cfg.BackendURL,
		Timeout:       cfg.BackendTimeout,
		UploadTimeout: cfg.BackendUploadTimeout,
	})
	bus := event.NewBus()
	ctrl := controller.New(client, controller.Options{
		Grouping:  grouping.Options{Separator: cfg.GroupSeparator},
		Extension: cfg.AcceptedExtension,
		StatusPolicy: status.Policy{
			ErrorTTL:   cfg.StatusErrorTTL,
			SuccessTTL: cfg.StatusSuccessTTL,
			InfoTTL:    cfg.StatusInfoTTL,
		},
		PollInterval: cfg.PollInterval,
		Bus:          bus,
	})

	confirmations, err := confirm.NewService(cfg.ConfirmSecret, cfg.ConfirmTTL)
	require.NoError(t, err)

	hub := websocket.NewHub(bus)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	server := httptest.NewServer(router.New(cfg, router.Handlers{
		Documents: handler.NewDocumentsHandler(ctrl, confirmations, "/api/v1/files/download"),
		Upload:    handler.NewUploadHandler(ctrl, cfg.MaxUploadSize),
		Status:    handler.NewStatusHandler(ctrl, client, time.Second),
		Download:  handler.NewDownloadHandler(client),
		Events:    handler.NewEventsHandler(hub, ctrl, cfg.CORSOrigins),
		Docs:      handler.NewDocsHandler(),
	}))

	t.Cleanup(func() {
		server.Close()
		ctrl.Unmount()
		hubCancel()
	})

	return &console{server: server, backend: backend, controller: ctrl}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

func (c *console) request(t *testing.T, method, route string, body io.Reader, header http.Header) (*http.Response, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, c.server.URL+route, body)
	require.NoError(t, err)
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := noRedirectClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp, decoded
}

func (c *console) upload(t *testing.T, name string, content []byte) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(ocrclient.FileField, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	header := http.Header{}
	header.Set("Content-Type", writer.FormDataContentType())
	return c.request(t, http.MethodPost, "/api/v1/uploads", &buf, header)
}

func (c *console) inventory(t *testing.T) model.InventoryView {
	t.Helper()

	resp, body := c.request(t, http.MethodGet, "/api/v1/documents", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view model.InventoryView
	require.NoError(t, json.Unmarshal(body.Data, &view))
	return view
}

var noRedirectClient = &http.Client{
	Timeout: 10 * time.Second,
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}
