// pkg/aws/s3.go
package aws

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/rs/zerolog"
)

// S3Client uploads stream recordings. Outside production it runs in mock
// mode and hands back local file URLs instead of touching S3.
type S3Client struct {
	uploader   *s3manager.Uploader
	bucketName string
	mockMode   bool
	logger     zerolog.Logger
}

func NewS3Client(region, bucketName string, logger zerolog.Logger) *S3Client {
	logger = logger.With().Str("component", "s3").Logger()

	env := os.Getenv("ENVIRONMENT")
	if env == "development" || env == "" {
		logger.Info().Msg("🔧 S3 client running in mock mode (development)")
		return &S3Client{
			bucketName: bucketName,
			mockMode:   true,
			logger:     logger,
		}
	}

	sess := session.Must(session.NewSession(&aws.Config{
		Region: aws.String(region),
	}))

	return &S3Client{
		uploader:   s3manager.NewUploader(sess),
		bucketName: bucketName,
		logger:     logger,
	}
}

func (s *S3Client) UploadRecording(filePath, key string) (string, error) {
	if s.mockMode {
		absPath, _ := filepath.Abs(filePath)
		mockURL := fmt.Sprintf("file://%s", absPath)
		s.logger.Info().Str("file", filePath).Str("url", mockURL).Msg("📁 [MOCK] S3 upload")
		return mockURL, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	result, err := s.uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	s.logger.Info().Str("key", key).Str("url", result.Location).Msg("✅ Recording uploaded to S3")
	return result.Location, nil
}
