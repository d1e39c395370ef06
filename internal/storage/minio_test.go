package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xjj0211/approval-frontend/internal/config"
	"github.com/xjj0211/approval-frontend/internal/form"
)

type memStore struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (m *memStore) PutObject(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[name] = data
	m.types[name] = contentType
	return nil
}

func TestMinIOEncoder_Encode(t *testing.T) {
	store := &memStore{objects: map[string][]byte{}, types: map[string]string{}}
	enc := NewMinIOEncoder(store, "https://files.example.com/approval-attachments/")
	enc.now = func() time.Time { return time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC) }

	f := &form.StagedFile{UID: "u1", Name: "Plan.XLSX", MIME: "application/x", Data: []byte("abc")}
	url, err := enc.Encode(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/approval-attachments/approvals/202511/u1.xlsx", url)
	assert.Equal(t, []byte("abc"), store.objects["approvals/202511/u1.xlsx"])
	assert.Equal(t, "application/x", store.types["approvals/202511/u1.xlsx"])

	store.err = errors.New("unavailable")
	_, err = enc.Encode(context.Background(), f)
	assert.Error(t, err)
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:9000/b", PublicBaseURL(config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "b"}))
	assert.Equal(t, "https://s3.local/b", PublicBaseURL(config.MinIOConfig{Endpoint: "s3.local", Bucket: "b", UseSSL: true}))
	assert.Equal(t, "https://cdn.example.com", PublicBaseURL(config.MinIOConfig{PublicURL: "https://cdn.example.com/"}))
}
