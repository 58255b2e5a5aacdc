package storage

import (
	"context"
	"strings"
	"testing"

	"annadan-api/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutCredentialsIsDisabled(t *testing.T) {
	up, err := New(config.CloudinaryConfig{})
	require.NoError(t, err)

	_, err = up.UploadImage(context.Background(), strings.NewReader("img"), "a.png", KindFood)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewWithCredentialsBuildsCloudinary(t *testing.T) {
	up, err := New(config.CloudinaryConfig{CloudName: "demo", APIKey: "key", APISecret: "secret"})
	require.NoError(t, err)
	assert.IsType(t, &Cloudinary{}, up)
}

func TestPresetsCoverEveryKind(t *testing.T) {
	for _, kind := range []ImageKind{KindAvatar, KindFood} {
		p, ok := presets[kind]
		assert.True(t, ok, kind)
		assert.NotEmpty(t, p.folder)
	}
}
