package publish

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObject struct {
	buf         bytes.Buffer
	contentType string
	closed      bool
	closeErr    error
}

func (o *memObject) Write(p []byte) (int, error) { return o.buf.Write(p) }

func (o *memObject) Close() error {
	o.closed = true
	return o.closeErr
}

type memStore struct {
	objects  map[string]*memObject
	closeErr error
}

func (s *memStore) NewWriter(_ context.Context, bucket, object, contentType string) io.WriteCloser {
	o := &memObject{contentType: contentType, closeErr: s.closeErr}
	s.objects[bucket+"/"+object] = o
	return o
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mosaic.fits"), []byte("SIMPLE"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mosaic.png"), []byte("PNG"), 0o644))

	store := &memStore{objects: map[string]*memObject{}}
	urls, err := New(store, "sky", "runs/m17").Publish(context.Background(), dir, "mosaic.fits", "mosaic.png")
	require.NoError(t, err)

	assert.Equal(t, []string{"gs://sky/runs/m17/mosaic.fits", "gs://sky/runs/m17/mosaic.png"}, urls)
	fits := store.objects["sky/runs/m17/mosaic.fits"]
	require.NotNil(t, fits)
	assert.Equal(t, "SIMPLE", fits.buf.String())
	assert.Equal(t, "application/fits", fits.contentType)
	assert.True(t, fits.closed)
	assert.Equal(t, "image/png", store.objects["sky/runs/m17/mosaic.png"].contentType)
}

func TestPublish_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		store := &memStore{objects: map[string]*memObject{}}
		urls, err := New(store, "sky", "m17").Publish(context.Background(), t.TempDir(), "mosaic.fits")
		assert.ErrorContains(t, err, "could not open local file")
		assert.Empty(t, urls)
		assert.Empty(t, store.objects)
	})

	t.Run("commit fails", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mosaic.png"), []byte("PNG"), 0o644))
		store := &memStore{objects: map[string]*memObject{}, closeErr: errors.New("precondition failed")}

		_, err := New(store, "sky", "m17").Publish(context.Background(), dir, "mosaic.png")
		assert.ErrorContains(t, err, "failed to finalize m17/mosaic.png: precondition failed")
	})
}
