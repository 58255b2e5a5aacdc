// Package storage uploads user images to the managed image host.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"annadan-api/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type ImageKind string

const (
	KindAvatar ImageKind = "avatar"
	KindFood   ImageKind = "food"
)

var ErrDisabled = errors.New("image storage is not configured")

// Uploader stores an image and returns its public URL
type Uploader interface {
	UploadImage(ctx context.Context, r io.Reader, filename string, kind ImageKind) (string, error)
}

type preset struct {
	folder         string
	transformation string
}

var presets = map[ImageKind]preset{
	KindAvatar: {folder: "annadan/avatars", transformation: "c_fill,g_face,h_400,w_400/q_auto:good"},
	KindFood:   {folder: "annadan/food-images", transformation: "c_fill,h_600,w_800/q_auto:good"},
}

type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(cfg config.CloudinaryConfig) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) UploadImage(ctx context.Context, r io.Reader, filename string, kind ImageKind) (string, error) {
	p, ok := presets[kind]
	if !ok {
		return "", fmt.Errorf("unknown image kind %q", kind)
	}
	resp, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:         p.folder,
		ResourceType:   "auto",
		Transformation: p.transformation,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload %s: %s", filename, resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// Disabled is used when no image host is configured; every upload fails softly.
type Disabled struct{}

func (Disabled) UploadImage(context.Context, io.Reader, string, ImageKind) (string, error) {
	return "", ErrDisabled
}

// New returns a Cloudinary uploader when credentials are present, Disabled otherwise
func New(cfg config.CloudinaryConfig) (Uploader, error) {
	if !cfg.Enabled() {
		return Disabled{}, nil
	}
	return NewCloudinary(cfg)
}
