package confirm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-ocr-inventory/internal/model"
)

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	svc, err := NewService("test-secret", time.Minute)
	require.NoError(t, err)

	token, expiresAt, err := svc.Issue("doc1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 2*time.Second)

	require.NoError(t, svc.Verify(token, "doc1"))
}

func TestVerify_SingleUse(t *testing.T) {
	t.Parallel()

	svc, err := NewService("test-secret", time.Minute)
	require.NoError(t, err)

	token, _, err := svc.Issue("doc1")
	require.NoError(t, err)

	require.NoError(t, svc.Verify(token, "doc1"))
	require.ErrorIs(t, svc.Verify(token, "doc1"), model.ErrInvalidConfirmation)
}

func TestVerify_Rejects(t *testing.T) {
	t.Parallel()

	svc, err := NewService("test-secret", time.Minute)
	require.NoError(t, err)
	other, err := NewService("other-secret", time.Minute)
	require.NoError(t, err)

	token, _, err := svc.Issue("doc1")
	require.NoError(t, err)
	foreign, _, err := other.Issue("doc1")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Verify(token, "doc2"), model.ErrInvalidConfirmation)
	require.ErrorIs(t, svc.Verify(foreign, "doc1"), model.ErrInvalidConfirmation)
	require.ErrorIs(t, svc.Verify("not-a-token", "doc1"), model.ErrInvalidConfirmation)
	require.ErrorIs(t, svc.Verify("", "doc1"), model.ErrInvalidConfirmation)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	svc, err := NewService("test-secret", time.Minute)
	require.NoError(t, err)

	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }
	token, _, err := svc.Issue("doc1")
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	require.ErrorIs(t, svc.Verify(token, "doc1"), model.ErrInvalidConfirmation)
}

func TestNewService_Defaults(t *testing.T) {
	t.Parallel()

	a, err := NewService("", 0)
	require.NoError(t, err)
	b, err := NewService("", 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultTTL, a.TTL())

	token, _, err := a.Issue("doc1")
	require.NoError(t, err)
	require.ErrorIs(t, b.Verify(token, "doc1"), model.ErrInvalidConfirmation)
	require.NoError(t, a.Verify(token, "doc1"))
}
