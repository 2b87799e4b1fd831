package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"strings"
	"time"

	"github.com/arvi1709/AI-library/internal/config"
	"github.com/arvi1709/AI-library/internal/ingest"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 10
	ProfileImageSize            = 512
	StoryImageMaxSize           = 1600
	WebPQuality                 = 75
)

// UploadedFile is a file received from a multipart form.
type UploadedFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService validates uploaded images, re-encodes them to WebP and
// stores them in the object store.
type ImageService struct {
	store              storage.ObjectStore
	maxUploadSizeBytes int64
}

func NewImageService(store storage.ObjectStore, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}
	return &ImageService{
		store:              store,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// SaveProfileImage stores a square avatar at profile_images/{userID},
// replacing any previous one.
func (s *ImageService) SaveProfileImage(ctx context.Context, userID uint, in UploadedFile) (string, error) {
	encoded, err := s.encode(in, true, ProfileImageSize)
	if err != nil {
		return "", err
	}
	url, err := s.store.Put(ctx, storage.ProfileImageKey(userID), bytes.NewReader(encoded))
	if err != nil {
		return "", models.NewInternalError(fmt.Errorf("store profile image: %w", err))
	}
	// Same key on every upload; bust client caches.
	return fmt.Sprintf("%s?v=%d", url, time.Now().UnixMilli()), nil
}

// SaveStoryImage stores a banner at story_images/{unixMillis}_{filename}.
func (s *ImageService) SaveStoryImage(ctx context.Context, at time.Time, in UploadedFile) (string, error) {
	encoded, err := s.encode(in, false, StoryImageMaxSize)
	if err != nil {
		return "", err
	}
	url, err := s.store.Put(ctx, storage.StoryImageKey(at, in.Filename), bytes.NewReader(encoded))
	if err != nil {
		return "", models.NewInternalError(fmt.Errorf("store story image: %w", err))
	}
	return url, nil
}

// DeleteByURL removes the object behind url. URLs this store did not issue
// are left alone. A missing object yields storage.ErrObjectNotFound.
func (s *ImageService) DeleteByURL(ctx context.Context, url string) error {
	key, ok := s.store.KeyFromURL(url)
	if !ok {
		return nil
	}
	return s.store.Delete(ctx, key)
}

// maxImagePixels bounds the decoded size of an upload.
const maxImagePixels = 40_000_000

// imageMIME maps the decoder format names that are accepted to their MIME types.
var imageMIME = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

func (s *ImageService) encode(in UploadedFile, square bool, maxSize int) ([]byte, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil || imageMIME[format] == "" {
		return nil, models.NewValidationError("Invalid image type")
	}
	if cfg.Width*cfg.Height > maxImagePixels {
		return nil, models.NewValidationError("Image dimensions are too large")
	}
	if provided := ingest.BaseMIMEType(in.ContentType); strings.HasPrefix(provided, "image/") {
		if provided == "image/jpg" {
			provided = "image/jpeg"
		}
		if provided != imageMIME[format] {
			return nil, models.NewValidationError("Image content type mismatch")
		}
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, fitImage(decoded, maxSize, square), &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, models.NewInternalError(fmt.Errorf("encode webp: %w", err))
	}
	return buf.Bytes(), nil
}

// fitImage scales src to fit within maxSize on both sides in a single pass,
// first taking the centred square when square is set. Images that already
// fit are returned as they are.
func fitImage(src image.Image, maxSize int, square bool) image.Image {
	srcRect := src.Bounds()
	w, h := srcRect.Dx(), srcRect.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if square && w != h {
		side := min(w, h)
		x := srcRect.Min.X + (w-side)/2
		y := srcRect.Min.Y + (h-side)/2
		srcRect = image.Rect(x, y, x+side, y+side)
		w, h = side, side
	}

	dstW, dstH := w, h
	if w > maxSize || h > maxSize {
		scale := min(float64(maxSize)/float64(w), float64(maxSize)/float64(h))
		dstW = max(1, int(float64(w)*scale))
		dstH = max(1, int(float64(h)*scale))
	}
	if srcRect == src.Bounds() && dstW == w && dstH == h {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, srcRect, xdraw.Src, nil)
	return dst
}
