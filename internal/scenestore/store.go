// Package scenestore persists scene and region documents as JSON objects in
// MinIO, one bucket per scene.
package scenestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"tabletop-core/internal/document"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
}

type Store struct {
	client *minio.Client
}

func NewStore(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Store{client: client}, nil
}

func sceneBucket(sceneID string) string {
	return "scenes-" + strings.ToLower(sceneID)
}

func (s *Store) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (s *Store) putJSON(ctx context.Context, bucket, key string, v interface{}) error {
	if err := s.ensureBucket(ctx, bucket); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json; charset=utf-8"})
	return err
}

func (s *Store) getJSON(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

// GetObject exposes raw object reads for collaborators that keep their own
// formats, like the scene grid profile store.
func (s *Store) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	return s.getJSON(ctx, bucket, key)
}

// LoadScene loads the scene document.
func (s *Store) LoadScene(ctx context.Context, sceneID string) (*document.SceneDocument, error) {
	raw, err := s.getJSON(ctx, sceneBucket(sceneID), "scene.json")
	if err != nil {
		return nil, fmt.Errorf("load scene %s: %w", sceneID, err)
	}
	var scene document.SceneDocument
	if err := json.Unmarshal(raw, &scene); err != nil {
		return nil, fmt.Errorf("decode scene %s: %w", sceneID, err)
	}
	return &scene, nil
}

// SaveScene persists the scene document.
func (s *Store) SaveScene(ctx context.Context, scene *document.SceneDocument) error {
	if err := s.putJSON(ctx, sceneBucket(scene.ID), "scene.json", scene); err != nil {
		return fmt.Errorf("save scene %s: %w", scene.ID, err)
	}
	return nil
}

// SaveRegion persists a single region document under its scene.
func (s *Store) SaveRegion(ctx context.Context, sceneID string, doc *document.RegionDocument) error {
	if err := s.putJSON(ctx, sceneBucket(sceneID), "regions/"+doc.ID+".json", doc); err != nil {
		return fmt.Errorf("save region %s: %w", doc.ID, err)
	}
	return nil
}

// LoadRegion loads a single region document.
func (s *Store) LoadRegion(ctx context.Context, sceneID, regionID string) ([]byte, error) {
	raw, err := s.getJSON(ctx, sceneBucket(sceneID), "regions/"+regionID+".json")
	if err != nil {
		return nil, fmt.Errorf("load region %s: %w", regionID, err)
	}
	return raw, nil
}

// DeleteRegion removes a region document.
func (s *Store) DeleteRegion(ctx context.Context, sceneID, regionID string) error {
	err := s.client.RemoveObject(ctx, sceneBucket(sceneID), "regions/"+regionID+".json", minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("delete region %s: %w", regionID, err)
	}
	return nil
}
