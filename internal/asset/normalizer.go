// Package asset turns raw image buffers into hosted, URL-addressable assets.
package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
)

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

var (
	jpegSignature = []byte{0xFF, 0xD8, 0xFF}
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47}
)

// UploadOptions controls how the host stores an upload.
type UploadOptions struct {
	Folder         string
	ResourceType   string
	Transformation string
}

// Uploaded is what the host hands back for a stored asset.
type Uploaded struct {
	PublicID string
	URL      string
}

// Host is the external asset host. file is either a data URI/remote URL
// string or an io.Reader with the raw bytes.
type Host interface {
	Upload(ctx context.Context, file interface{}, opts UploadOptions) (Uploaded, error)
	TransformURL(publicID, transformation string) (string, error)
}

// Asset is a normalized, publicly reachable image.
type Asset struct {
	MimeType string
	URL      string
}

type Normalizer struct {
	host   Host
	folder string
	logger *slog.Logger
}

func NewNormalizer(host Host, folder string, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		host:   host,
		folder: folder,
		logger: logger.With("component", "asset-normalizer"),
	}
}

// Normalize sniffs the buffer format, re-encodes it as a data URI and uploads
// it as an image resource. Upload errors are returned as-is, wrapped.
func (n *Normalizer) Normalize(ctx context.Context, raw []byte) (Asset, error) {
	if len(raw) == 0 {
		return Asset{}, errors.New("empty image buffer")
	}

	mimeType := DetectMimeType(raw)
	n.logger.Info("Normalizing image", "bytes", len(raw), "mime", mimeType)

	uploaded, err := n.host.Upload(ctx, DataURI(mimeType, raw), UploadOptions{
		Folder:       n.folder,
		ResourceType: "image",
	})
	if err != nil {
		return Asset{}, fmt.Errorf("failed to upload image: %w", err)
	}

	n.logger.Info("Image uploaded", "url", uploaded.URL)
	return Asset{MimeType: mimeType, URL: uploaded.URL}, nil
}

// DetectMimeType checks the leading bytes against the JPEG and PNG
// signatures. Anything else is reported as PNG.
func DetectMimeType(raw []byte) string {
	switch {
	case bytes.HasPrefix(raw, jpegSignature):
		return MimeJPEG
	case bytes.HasPrefix(raw, pngSignature):
		return MimePNG
	default:
		return MimePNG
	}
}

func DataURI(mimeType string, raw []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(raw)
}
