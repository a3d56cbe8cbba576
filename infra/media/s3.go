// Package media uploads moment attachments to an S3-compatible bucket.
package media

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/momentlog/momentlog/domain"
	"github.com/momentlog/momentlog/infra/config"
)

// MaxUploadBytes bounds a single attachment.
const MaxUploadBytes = 25 << 20

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink implements app.MediaSink.
type S3Sink struct {
	client    putObjectAPI
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewS3Sink builds a client from static credentials. A custom endpoint
// (MinIO and friends) switches to path-style addressing.
func NewS3Sink(ctx context.Context, cfg config.MediaConfig) (*S3Sink, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	public := cfg.PublicURL
	if public == "" {
		public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return newSink(client, cfg.Bucket, public), nil
}

func newSink(client putObjectAPI, bucket, publicURL string) *S3Sink {
	return &S3Sink{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

// Upload stores data under a fresh key and returns its public URL.
func (s *S3Sink) Upload(ctx context.Context, data []byte, kind domain.MediaKind) (string, error) {
	switch {
	case len(data) == 0:
		return "", fmt.Errorf("%w: empty %s upload", domain.ErrValidation, kind)
	case len(data) > MaxUploadBytes:
		return "", fmt.Errorf("%w: %s is larger than %d MiB", domain.ErrValidation, kind, MaxUploadBytes>>20)
	}

	contentType := detectContentType(data, kind)
	key := s.storageKey(kind, contentType)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}

func (s *S3Sink) storageKey(kind domain.MediaKind, contentType string) string {
	d := s.now().UTC()
	return fmt.Sprintf("moments/%s/%d/%02d/%02d/%s%s", kind, d.Year(), d.Month(), d.Day(), uuid.New(), extension(contentType))
}

var fallbackTypes = map[domain.MediaKind]string{
	domain.MediaImage: "image/jpeg",
	domain.MediaVideo: "video/mp4",
	domain.MediaAudio: "audio/mpeg",
}

// detectContentType sniffs data and falls back to a default for kind when
// the sniffed type belongs to another family.
func detectContentType(data []byte, kind domain.MediaKind) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	switch {
	case strings.HasPrefix(ct, string(kind)+"/"):
		return ct
	case kind == domain.MediaAudio && ct == "application/ogg":
		return "audio/ogg"
	}
	return fallbackTypes[kind]
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/wave":
		return ".wav"
	}
	return ""
}
