package local

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Megamind2600/resumerocketpro/internal/shared/storage/object"
)

func TestPutGetDelete(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	payload := []byte("%PDF-1.4\nresume body")

	key, err := store.Put(ctx, object.Object{Owner: "a@b.com", FileName: "my resume.pdf", ContentType: "application/pdf", Data: payload})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "resumes/"))
	assert.True(t, strings.HasSuffix(key, "_my resume.pdf"))

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, object.ErrNotFound)

	// deleting again is fine
	assert.NoError(t, store.Delete(ctx, key))
}

func TestPutRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.Put(context.Background(), object.Object{Owner: "a@b.com", FileName: "../etc/passwd", Data: []byte("x")})
	assert.Error(t, err)
}

func TestGetRejectsEscapingKeys(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.Get(context.Background(), "../outside.pdf")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, object.ErrNotFound)
}

func TestPutHonorsCanceledContext(t *testing.T) {
	store := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Put(ctx, object.Object{Owner: "a@b.com", FileName: "cv.docx", Data: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
}
