package store

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "spreadscan/config"
	"spreadscan/logger"
)

// S3Backup mirrors working set snapshots to an S3 bucket so the active set
// survives host loss and can be inspected remotely.
type S3Backup struct {
	client *s3.Client
	bucket string
	prefix string
	log    *logger.Log
}

// NewS3Backup configures the AWS SDK and validates credentials. Static
// credentials from the configuration take precedence; otherwise the default
// provider chain applies.
func NewS3Backup(ctx context.Context, cfg appconfig.S3Config) (*S3Backup, error) {
	log := logger.GetLogger()

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	backup := &S3Backup{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		log:    log,
	}

	log.WithComponent("s3_backup").WithFields(logger.Fields{
		"region": cfg.Region,
		"bucket": cfg.Bucket,
		"prefix": backup.prefix,
	}).Debug("s3 backup initialized")

	return backup, nil
}

// Upload puts the snapshot under the configured prefix, overwriting the
// previous object of the same name.
func (b *S3Backup) Upload(ctx context.Context, name string, data []byte) error {
	key := name
	if b.prefix != "" {
		key = b.prefix + "/" + name
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	logger.IncrementS3Backup(int64(len(data)))
	b.log.WithComponent("s3_backup").WithFields(logger.Fields{
		"key":   key,
		"bytes": len(data),
	}).Debug("snapshot backed up")
	return nil
}
