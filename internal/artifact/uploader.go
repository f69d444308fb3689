// Package artifact uploads run reports to S3-compatible object storage
// (Cloudflare R2 in production) so CI runs leave durable, shareable
// records.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/sergeeey/verifind/internal/config"
)

// Uploader pushes artifact files to a bucket.
type Uploader struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewUploader creates an uploader from artifact configuration. Call only
// when cfg.Enabled().
func NewUploader(ctx context.Context, cfg *config.ArtifactConfig, log zerolog.Logger) (*Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// R2 requires path-style addressing.
		o.UsePathStyle = true
	})

	return &Uploader{
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		log:      log.With().Str("service", "artifact_upload").Logger(),
	}, nil
}

// UploadFile uploads one local artifact and returns its object key.
func (u *Uploader) UploadFile(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact %s: %w", localPath, err)
	}
	defer f.Close()

	key := objectKey(u.prefix, time.Now().UTC(), filepath.Base(localPath))

	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact %s: %w", localPath, err)
	}

	u.log.Info().Str("key", key).Msg("Artifact uploaded")
	return key, nil
}

// UploadAll uploads every path, continuing past individual failures and
// returning the first error encountered. An artifact upload failure never
// fails a run; callers log and move on.
func (u *Uploader) UploadAll(ctx context.Context, paths ...string) error {
	var firstErr error
	for _, p := range paths {
		if _, err := u.UploadFile(ctx, p); err != nil {
			u.log.Error().Err(err).Str("path", p).Msg("Artifact upload failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// objectKey builds prefix/YYYY/MM/filename.
func objectKey(prefix string, now time.Time, filename string) string {
	return path.Join(prefix, now.Format("2006"), now.Format("01"), filename)
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".json":
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}
