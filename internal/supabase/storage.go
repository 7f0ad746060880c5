package supabase

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

type StorageClient struct {
	client  *storage.Client
	baseURL string
}

func NewStorageClient(supabaseURL, serviceRoleKey string) (*StorageClient, error) {
	baseURL := strings.TrimRight(supabaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &StorageClient{
		client:  client,
		baseURL: baseURL,
	}, nil
}

// Upload stores data at bucket/path and returns its public URL.
func (s *StorageClient) Upload(bucket, path string, data []byte, contentType string, upsert bool) (string, error) {
	_, err := s.client.UploadFile(bucket, path, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s/%s: %w", bucket, path, err)
	}

	return s.PublicURL(bucket, path), nil
}

func (s *StorageClient) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, bucket, path)
}

// ThumbnailURL returns a resized rendition of a public object through the
// image transformation endpoint.
func (s *StorageClient) ThumbnailURL(bucket, path string, width int) string {
	resp := s.client.GetPublicUrl(bucket, path, storage.UrlOptions{
		Transform: &storage.TransformOptions{
			Width:  width,
			Resize: "contain",
		},
	})
	if resp.SignedURL != "" {
		return resp.SignedURL
	}
	return fmt.Sprintf("%s/storage/v1/render/image/public/%s/%s?width=%d&resize=contain", s.baseURL, bucket, path, width)
}

func (s *StorageClient) Remove(bucket string, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if _, err := s.client.RemoveFile(bucket, paths); err != nil {
		return fmt.Errorf("failed to remove files from %s: %w", bucket, err)
	}
	return nil
}

// PathFromPublicURL extracts the object path from a public or render URL of
// bucket. It reports false when the URL points elsewhere.
func (s *StorageClient) PathFromPublicURL(bucket, publicURL string) (string, bool) {
	return ObjectPath(bucket, publicURL)
}

// ObjectPath extracts the object path of bucket from a storage URL.
func ObjectPath(bucket, rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	for _, prefix := range []string{
		"/storage/v1/object/public/" + bucket + "/",
		"/storage/v1/render/image/public/" + bucket + "/",
	} {
		if path, ok := strings.CutPrefix(u.Path, prefix); ok && path != "" {
			return path, true
		}
	}
	return "", false
}
