package ocrclient

import (
	"context"
	"encoding/json"
	"io"

	"github.com/stretchr/testify/mock"

	"go-ocr-inventory/internal/model"
)

// MockBackend is a testify mock of the OCR service operations the
// controller depends on.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListFiles(ctx context.Context) ([]model.RemoteFileRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RemoteFileRecord), args.Error(1)
}

// Process drains content before recording the call, as the real client
// does while streaming, so expectations only match on ctx and name.
func (m *MockBackend) Process(ctx context.Context, name string, content io.Reader) (json.RawMessage, error) {
	if content != nil {
		_, _ = io.Copy(io.Discard, content)
	}
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockBackend) DeleteDirectory(ctx context.Context, dir string) error {
	args := m.Called(ctx, dir)
	return args.Error(0)
}

func (m *MockBackend) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
