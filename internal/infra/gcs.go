package infra

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/disintegration/imaging"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
)

const thumbnailWidth = 200

// ImageStore uploads product images to a Cloud Storage bucket.
type ImageStore struct {
	client *storage.Client
	bucket string
}

func NewImageStore(ctx context.Context, bucket string) (*ImageStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: new client: %w", err)
	}
	return &ImageStore{client: client, bucket: bucket}, nil
}

func (s *ImageStore) Close() error { return s.client.Close() }

// UploadProductImage stores the original image and a JPEG thumbnail and
// returns both public URLs.
func (s *ImageStore) UploadProductImage(ctx context.Context, productID string, r io.Reader) (imageURL, thumbURL string, err error) {
	raw, err := io.ReadAll(io.LimitReader(r, 10<<20))
	if err != nil {
		return "", "", fmt.Errorf("gcs: read image: %w", err)
	}
	contentType := http.DetectContentType(raw)

	thumb, err := Thumbnail(bytes.NewReader(raw))
	if err != nil {
		return "", "", err
	}

	origName := fmt.Sprintf("products/%s/original", productID)
	thumbName := fmt.Sprintf("products/%s/thumb.jpg", productID)
	if err := s.write(ctx, origName, contentType, raw); err != nil {
		return "", "", err
	}
	if err := s.write(ctx, thumbName, "image/jpeg", thumb); err != nil {
		return "", "", err
	}
	return s.publicURL(origName), s.publicURL(thumbName), nil
}

func (s *ImageStore) write(ctx context.Context, name, contentType string, data []byte) error {
	wc := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return fmt.Errorf("gcs: write %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("gcs: close %s: %w", name, err)
	}
	return nil
}

func (s *ImageStore) publicURL(name string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, name)
}

// Thumbnail decodes an image and re-encodes it as a JPEG 200px wide.
func Thumbnail(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, apierror.Invalid("imagem ilegível: %v", err)
	}
	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("image: encode: %w", err)
	}
	return buf.Bytes(), nil
}
