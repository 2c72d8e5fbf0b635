package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryHost implements Host on top of the Cloudinary SDK.
type CloudinaryHost struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryHost(cloudName, apiKey, apiSecret string) (*CloudinaryHost, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("cloudinary credentials are not set")
	}

	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryHost{cld: cld}, nil
}

func (h *CloudinaryHost) Upload(ctx context.Context, file interface{}, opts UploadOptions) (Uploaded, error) {
	result, err := h.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         opts.Folder,
		ResourceType:   opts.ResourceType,
		Transformation: opts.Transformation,
	})
	if err != nil {
		return Uploaded{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if result.Error.Message != "" {
		return Uploaded{}, fmt.Errorf("cloudinary upload: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return Uploaded{}, errors.New("cloudinary upload: empty secure url")
	}

	return Uploaded{PublicID: result.PublicID, URL: result.SecureURL}, nil
}

// TransformURL builds a delivery URL for publicID with the given
// transformation applied on the fly.
func (h *CloudinaryHost) TransformURL(publicID, transformation string) (string, error) {
	img, err := h.cld.Image(publicID)
	if err != nil {
		return "", fmt.Errorf("cloudinary image %q: %w", publicID, err)
	}
	img.Transformation = transformation

	u, err := img.String()
	if err != nil {
		return "", fmt.Errorf("cloudinary url %q: %w", publicID, err)
	}
	return u, nil
}
