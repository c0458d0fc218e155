package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, width uint) *Store {
	t.Helper()
	s, err := New(t.TempDir(), width, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveWritesThumbnail(t *testing.T) {
	s := newTestStore(t, 100)
	raw := pngBytes(t, 400, 200)

	require.NoError(t, s.SaveBase64("zopf.png", "data:image/png;base64,"+base64.StdEncoding.EncodeToString(raw)))

	full, err := os.ReadFile(filepath.Join(s.Root(), FullDir, "zopf.png"))
	require.NoError(t, err)
	assert.Equal(t, raw, full)

	f, err := os.Open(filepath.Join(s.Root(), ThumbDir, "zopf.png"))
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestSaveKeepsSmallAndUnknownImages(t *testing.T) {
	s := newTestStore(t, 800)

	small := pngBytes(t, 20, 10)
	require.NoError(t, s.Save("small.png", small))
	thumb, err := os.ReadFile(filepath.Join(s.Root(), ThumbDir, "small.png"))
	require.NoError(t, err)
	assert.Equal(t, small, thumb)

	webp := []byte("RIFF....WEBPVP8 not really")
	require.NoError(t, s.Save("brot.webp", webp))
	thumb, err = os.ReadFile(filepath.Join(s.Root(), ThumbDir, "brot.webp"))
	require.NoError(t, err)
	assert.Equal(t, webp, thumb)
}

func TestInvalidInput(t *testing.T) {
	s := newTestStore(t, 100)

	assert.ErrorIs(t, s.Save("../escape.png", []byte{1}), ErrInvalidName)
	assert.ErrorIs(t, s.Save("sub/dir.png", []byte{1}), ErrInvalidName)
	assert.ErrorIs(t, s.Save(".hidden.png", []byte{1}), ErrInvalidName)
	assert.ErrorIs(t, s.Save("empty.png", nil), ErrEmptyData)
	assert.ErrorIs(t, s.SaveBase64("bad.png", "%%%"), ErrInvalidData)
	assert.ErrorIs(t, s.SaveBase64("bad.png", "data:image/png;base64,"), ErrEmptyData)
}

func TestMoveAndDelete(t *testing.T) {
	s := newTestStore(t, 100)
	require.NoError(t, s.Save("a.png", pngBytes(t, 10, 10)))
	require.NoError(t, s.Save("b.png", pngBytes(t, 10, 10)))

	assert.ErrorIs(t, s.Move("a.png", "b.png"), ErrExists)
	require.NoError(t, s.Move("a.png", "c.png"))
	assert.FileExists(t, filepath.Join(s.Root(), FullDir, "c.png"))
	assert.FileExists(t, filepath.Join(s.Root(), ThumbDir, "c.png"))
	assert.NoFileExists(t, filepath.Join(s.Root(), FullDir, "a.png"))
	assert.ErrorIs(t, s.Move("a.png", "d.png"), ErrNotFound)

	require.NoError(t, s.Delete("c.png"))
	assert.NoFileExists(t, filepath.Join(s.Root(), FullDir, "c.png"))
	assert.NoFileExists(t, filepath.Join(s.Root(), ThumbDir, "c.png"))
	assert.ErrorIs(t, s.Delete("c.png"), ErrNotFound)
}

func TestSaveReceipt(t *testing.T) {
	s := newTestStore(t, 100)

	rel, err := s.SaveReceipt("JPG", []byte("receipt"))
	require.NoError(t, err)
	assert.Regexp(t, `^receipts/[0-9a-z]{26}\.jpg$`, rel)

	data, err := os.ReadFile(filepath.Join(s.Root(), filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "receipt", string(data))

	_, err = s.SaveReceipt(".png", nil)
	assert.ErrorIs(t, err, ErrEmptyData)
}
