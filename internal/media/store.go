// Package media stores uploaded post media and avatars on local disk.
// Images are normalised to WebP; videos are kept as uploaded.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"appx/internal/config"
	"appx/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMaxSizeMB = 10
	DefaultQuality   = 75

	postMaxDim   = 2048
	avatarMaxDim = 512

	// maxDecodePixels bounds the bitmap a header may ask us to allocate.
	maxDecodePixels = 40_000_000

	postsDir   = "posts"
	avatarsDir = "avatars"
)

// Store writes files below dir and serves them under baseURL.
type Store struct {
	dir      string
	baseURL  string
	maxBytes int64
	quality  float32
}

// NewStore builds a Store from the media settings in cfg.
func NewStore(cfg *config.Config) *Store {
	maxMB := cfg.MediaMaxSizeMB
	if maxMB <= 0 {
		maxMB = DefaultMaxSizeMB
	}
	quality := cfg.MediaWebPQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Store{
		dir:      cfg.MediaDir,
		baseURL:  strings.TrimRight(cfg.MediaBaseURL, "/"),
		maxBytes: int64(maxMB) * 1024 * 1024,
		quality:  float32(quality),
	}
}

// Dir returns the root directory files are written to.
func (s *Store) Dir() string { return s.dir }

// SavePostMedia stores one post attachment and returns its public URL and
// media kind (models.MediaKindImage or models.MediaKindVideo).
func (s *Store) SavePostMedia(ctx context.Context, filename string, data []byte) (string, string, error) {
	if err := s.checkSize(data); err != nil {
		return "", "", err
	}

	detected := http.DetectContentType(data)
	switch {
	case isAllowedImageMIME(detected):
		img, err := decode(data)
		if err != nil {
			return "", "", err
		}
		url, err := s.writeWebP(ctx, postsDir, resizeToFit(img, postMaxDim, postMaxDim))
		return url, models.MediaKindImage, err
	case detected == "video/mp4" || detected == "video/webm":
		ext := "." + strings.TrimPrefix(detected, "video/")
		url, err := s.write(ctx, postsDir, uuid.NewString()+ext, data)
		return url, models.MediaKindVideo, err
	default:
		return "", "", models.NewValidationError(fmt.Sprintf("Unsupported media type for %q", filepath.Base(filename)))
	}
}

// SaveAvatar stores a square, center-cropped WebP avatar and returns its URL.
func (s *Store) SaveAvatar(ctx context.Context, _ string, data []byte) (string, error) {
	if err := s.checkSize(data); err != nil {
		return "", err
	}
	if !isAllowedImageMIME(http.DetectContentType(data)) {
		return "", models.NewValidationError("Invalid image type")
	}
	img, err := decode(data)
	if err != nil {
		return "", err
	}
	return s.writeWebP(ctx, avatarsDir, resizeToFit(cropSquare(img), avatarMaxDim, avatarMaxDim))
}

func (s *Store) checkSize(data []byte) error {
	if len(data) == 0 {
		return models.NewValidationError("No file uploaded")
	}
	if int64(len(data)) > s.maxBytes {
		return models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}
	return nil
}

func (s *Store) writeWebP(ctx context.Context, sub string, img image.Image) (string, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: s.quality}); err != nil {
		return "", models.NewInternalError(err)
	}
	return s.write(ctx, sub, uuid.NewString()+".webp", buf.Bytes())
}

func (s *Store) write(ctx context.Context, sub, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(s.dir, sub)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		return "", models.NewInternalError(err)
	}
	return s.baseURL + "/" + path.Join(sub, name), nil
}

func decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxDecodePixels {
		return nil, models.NewValidationError(fmt.Sprintf("Image dimensions %dx%d are too large", cfg.Width, cfg.Height))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	return img, nil
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func cropSquare(src image.Image) image.Image {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	if side <= 0 || b.Dx() == b.Dy() {
		return src
	}
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
