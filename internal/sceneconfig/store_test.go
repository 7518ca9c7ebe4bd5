package sceneconfig

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	objects map[string][]byte
	calls   int
}

func (f *fakeFetcher) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	f.calls++
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("object %s/%s not found", bucket, key)
	}
	return data, nil
}

func TestGetProfile(t *testing.T) {
	fetcher := &fakeFetcher{objects: map[string][]byte{
		"config/scene-profiles/scene-1.yaml": []byte(`
grid_type: square
grid_size: 100
grid_distance: 5
elevation:
  bottom: 0
placement:
  max_attempts: 10
`),
	}}
	store := NewStore(fetcher, "config")

	profile, err := store.GetProfile(context.Background(), "scene-1")
	require.NoError(t, err)
	assert.Equal(t, "square", profile.GridType)
	assert.Equal(t, 100.0, profile.GridSize)
	assert.Equal(t, 5.0, profile.GridDistance)
	require.NotNil(t, profile.Elevation.Bottom)
	assert.Equal(t, 0.0, *profile.Elevation.Bottom)
	assert.Nil(t, profile.Elevation.Top)
	assert.Equal(t, 10, profile.Placement.MaxAttempts)
}

func TestGetProfileCached(t *testing.T) {
	fetcher := &fakeFetcher{objects: map[string][]byte{
		"config/scene-profiles/scene-1.yaml": []byte("grid_type: square\n"),
	}}
	store := NewStore(fetcher, "config")

	_, err := store.GetProfile(context.Background(), "scene-1")
	require.NoError(t, err)
	_, err = store.GetProfile(context.Background(), "scene-1")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls, "second read must hit the cache")
}

func TestGetProfileMissing(t *testing.T) {
	store := NewStore(&fakeFetcher{objects: map[string][]byte{}}, "config")
	_, err := store.GetProfile(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestGetProfileInvalidYAML(t *testing.T) {
	fetcher := &fakeFetcher{objects: map[string][]byte{
		"config/scene-profiles/scene-1.yaml": []byte(":\n\t- broken"),
	}}
	store := NewStore(fetcher, "config")
	_, err := store.GetProfile(context.Background(), "scene-1")
	assert.Error(t, err)
}
