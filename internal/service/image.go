package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/forkfeed/backend/config"
)

// ImageService decodes inline base64 recipe images and stores them under a
// fresh uuid-derived name, either on local disk or in S3.
type ImageService struct {
	mediaDir string
	s3Config *config.S3Config
}

// NewImageService creates a new ImageService instance. s3Config may be nil,
// in which case images are written to mediaDir.
func NewImageService(mediaDir string, s3Config *config.S3Config) *ImageService {
	return &ImageService{
		mediaDir: mediaDir,
		s3Config: s3Config,
	}
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store decodes a base64 payload (optionally a data URI) and persists it.
// Returns the URL path at which the image is served.
func (s *ImageService) Store(ctx context.Context, payload string) (string, error) {
	if i := strings.Index(payload, ";base64,"); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", invalidf("invalid image payload: not valid base64")
	}

	ext, ok := imageExtensions[http.DetectContentType(data)]
	if !ok {
		return "", invalidf("invalid image payload: unrecognized image format")
	}

	// Fresh name per upload; never derived from recipe fields.
	name := uuid.New().String() + ext

	if s.s3Config != nil {
		return s.uploadToS3(ctx, name, data)
	}

	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.mediaDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return "/media/" + name, nil
}

func (s *ImageService) uploadToS3(ctx context.Context, name string, data []byte) (string, error) {
	key := "media/" + name
	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to S3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.s3Config.BucketName, key), nil
}
