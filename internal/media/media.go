// Package media stores recipe photos with their thumbnails and cospend receipts.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"github.com/oklog/ulid/v2"
)

// Subdirectories of the media root.
const (
	FullDir    = "full"
	ThumbDir   = "thumb"
	ReceiptDir = "receipts"
)

// Media errors.
var (
	ErrInvalidName = errors.New("invalid image name")
	ErrInvalidData = errors.New("image data is not valid base64")
	ErrEmptyData   = errors.New("image data is empty")
	ErrNotFound    = errors.New("image not found")
	ErrExists      = errors.New("image already exists")
)

// Store writes images below a root directory.
type Store struct {
	root   string
	width  uint
	logger *slog.Logger
}

// New creates a Store rooted at dir. Thumbnails are scaled down to width pixels.
func New(dir string, width uint, logger *slog.Logger) (*Store, error) {
	for _, sub := range []string{FullDir, ThumbDir, ReceiptDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create media dir: %w", err)
		}
	}
	return &Store{root: dir, width: width, logger: logger.With("component", "media")}, nil
}

// Root returns the media root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) path(sub, name string) (string, error) {
	if name == "" || filepath.Base(name) != name || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.root, sub, name), nil
}

// DecodeBase64 accepts plain base64 or a data URL.
func DecodeBase64(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "data:") {
		i := strings.Index(data, ",")
		if i < 0 {
			return nil, ErrInvalidData
		}
		data = data[i+1:]
	}
	if data == "" {
		return nil, ErrEmptyData
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrInvalidData
	}
	if len(raw) == 0 {
		return nil, ErrEmptyData
	}
	return raw, nil
}

// Save stores the full image under name and writes its thumbnail. Formats the
// decoder does not know, such as webp, are copied as their own thumbnail.
func (s *Store) Save(name string, raw []byte) error {
	full, err := s.path(FullDir, name)
	if err != nil {
		return err
	}
	thumb, _ := s.path(ThumbDir, name)
	if len(raw) == 0 {
		return ErrEmptyData
	}

	if err := writeFile(full, raw); err != nil {
		return err
	}

	small, err := s.thumbnail(raw)
	if err != nil {
		s.logger.Warn("thumbnail_copied", slog.String("name", name), slog.String("reason", err.Error()))
		small = raw
	}
	if err := writeFile(thumb, small); err != nil {
		return err
	}

	s.logger.Info("image_saved", slog.String("name", name), slog.Int("bytes", len(raw)), slog.Int("thumb_bytes", len(small)))
	return nil
}

// SaveBase64 decodes data and stores it under name.
func (s *Store) SaveBase64(name, data string) error {
	raw, err := DecodeBase64(data)
	if err != nil {
		return err
	}
	return s.Save(name, raw)
}

func (s *Store) thumbnail(raw []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if uint(img.Bounds().Dx()) <= s.width {
		return raw, nil
	}

	// Height 0 keeps the aspect ratio.
	scaled := resize.Resize(s.width, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 85})
	case "png":
		err = png.Encode(&buf, scaled)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// Move renames the full image and its thumbnail.
func (s *Store) Move(oldName, newName string) error {
	for _, sub := range []string{FullDir, ThumbDir} {
		from, err := s.path(sub, oldName)
		if err != nil {
			return err
		}
		to, err := s.path(sub, newName)
		if err != nil {
			return err
		}
		if _, err := os.Stat(to); err == nil {
			return ErrExists
		}
		if err := os.Rename(from, to); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if sub == ThumbDir {
					continue
				}
				return ErrNotFound
			}
			return fmt.Errorf("failed to move image: %w", err)
		}
	}
	s.logger.Info("image_moved", slog.String("from", oldName), slog.String("to", newName))
	return nil
}

// Delete removes the full image and its thumbnail. A missing thumbnail is ignored.
func (s *Store) Delete(name string) error {
	full, err := s.path(FullDir, name)
	if err != nil {
		return err
	}
	thumb, _ := s.path(ThumbDir, name)

	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete image: %w", err)
	}
	if err := os.Remove(thumb); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete thumbnail: %w", err)
	}
	s.logger.Info("image_deleted", slog.String("name", name))
	return nil
}

// SaveReceipt stores a receipt under a generated name with ext and returns the
// path relative to the media root.
func (s *Store) SaveReceipt(ext string, raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", ErrEmptyData
	}
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := strings.ToLower(ulid.Make().String()) + ext
	target, err := s.path(ReceiptDir, name)
	if err != nil {
		return "", err
	}
	if err := writeFile(target, raw); err != nil {
		return "", err
	}
	s.logger.Info("receipt_saved", slog.String("name", name), slog.Int("bytes", len(raw)))
	return ReceiptDir + "/" + name, nil
}

// writeFile writes through a temp file so readers never see partial images.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store image: %w", err)
	}
	return nil
}
