package services

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"commission-art-backend/internal/metrics"
	"commission-art-backend/internal/validation"
)

type Buckets struct {
	OrderImages    string
	FinalWorks     string
	GalleryImages  string
	ThumbnailWidth int
}

// StorageService names, uploads and removes the media attached to orders,
// chats and the gallery.
type StorageService struct {
	media   MediaStore
	buckets Buckets
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewStorageService(media MediaStore, buckets Buckets, m *metrics.Metrics, logger *slog.Logger) *StorageService {
	return &StorageService{
		media:   media,
		buckets: buckets,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *StorageService) upload(bucket, path string, u validation.Upload, upsert bool) (string, error) {
	url, err := s.media.Upload(bucket, path, u.Data, validation.DetectContentType(u), upsert)
	s.metrics.ObserveUpload(bucket, err)
	if err != nil {
		return "", &StoreError{Op: "upload " + bucket, Err: err}
	}
	return url, nil
}

// UploadReferenceImages stores an order's reference images in order. If one
// fails, the ones already stored are removed.
func (s *StorageService) UploadReferenceImages(userID uuid.UUID, images []validation.Upload) ([]string, error) {
	urls := make([]string, 0, len(images))
	paths := make([]string, 0, len(images))
	stamp := s.now().UnixMilli()

	for i, img := range images {
		path := fmt.Sprintf("%s/%d_%d.%s", userID, stamp, i, validation.Extension(img))
		url, err := s.upload(s.buckets.OrderImages, path, img, false)
		if err != nil {
			s.remove(s.buckets.OrderImages, paths...)
			return nil, err
		}
		urls = append(urls, url)
		paths = append(paths, path)
	}
	return urls, nil
}

func (s *StorageService) UploadChatImage(orderID uuid.UUID, img validation.Upload) (string, error) {
	path := fmt.Sprintf("%s/%d.%s", orderID, s.now().UnixMilli(), validation.Extension(img))
	return s.upload(s.buckets.OrderImages, path, img, false)
}

// UploadPaymentProof replaces any earlier screenshot for the order.
func (s *StorageService) UploadPaymentProof(orderID uuid.UUID, img validation.Upload) (string, error) {
	path := fmt.Sprintf("%s/payment.%s", orderID, validation.Extension(img))
	return s.upload(s.buckets.OrderImages, path, img, true)
}

func (s *StorageService) UploadFinalWork(orderID uuid.UUID, file validation.Upload) (string, error) {
	path := fmt.Sprintf("%s/final.%s", orderID, validation.Extension(file))
	return s.upload(s.buckets.FinalWorks, path, file, true)
}

// UploadGalleryImage returns the public URL and a thumbnail URL.
func (s *StorageService) UploadGalleryImage(itemID uuid.UUID, img validation.Upload) (string, string, error) {
	path := fmt.Sprintf("%s.%s", itemID, validation.Extension(img))
	url, err := s.upload(s.buckets.GalleryImages, path, img, false)
	if err != nil {
		return "", "", err
	}
	return url, s.media.ThumbnailURL(s.buckets.GalleryImages, path, s.buckets.ThumbnailWidth), nil
}

func (s *StorageService) RemoveGalleryImage(imageURL string) error {
	path, ok := s.media.PathFromPublicURL(s.buckets.GalleryImages, imageURL)
	if !ok {
		return fmt.Errorf("image url %q is not in bucket %s", imageURL, s.buckets.GalleryImages)
	}
	if err := s.media.Remove(s.buckets.GalleryImages, path); err != nil {
		return &StoreError{Op: "remove " + s.buckets.GalleryImages, Err: err}
	}
	return nil
}

// RemoveReferenceImages deletes uploaded reference images by public URL.
// Failures are logged.
func (s *StorageService) RemoveReferenceImages(urls []string) {
	s.removeURLs(s.buckets.OrderImages, urls...)
}

func (s *StorageService) RemovePaymentProof(url string) {
	s.removeURLs(s.buckets.OrderImages, url)
}

func (s *StorageService) RemoveFinalWork(url string) {
	s.removeURLs(s.buckets.FinalWorks, url)
}

func (s *StorageService) removeURLs(bucket string, urls ...string) {
	paths := make([]string, 0, len(urls))
	for _, u := range urls {
		if p, ok := s.media.PathFromPublicURL(bucket, u); ok {
			paths = append(paths, p)
		}
	}
	s.remove(bucket, paths...)
}

func (s *StorageService) remove(bucket string, paths ...string) {
	if len(paths) == 0 {
		return
	}
	if err := s.media.Remove(bucket, paths...); err != nil {
		s.logger.Warn("failed to clean up uploaded files", "bucket", bucket, "count", len(paths), "error", err)
	}
}
