package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ContentType is the media type of a statement workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ObjectPutter is the part of the S3 client used to archive statements
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveConfig holds the S3 settings of the statement archive
type ArchiveConfig struct {
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // S3 compatible endpoint, e.g. MinIO; empty for AWS
}

// Archiver stores commission statements in S3
type Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewArchiver wraps an existing client
func NewArchiver(client ObjectPutter, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Archiver builds an S3 client from cfg. Without static keys the
// default AWS credential chain is used.
func NewS3Archiver(ctx context.Context, cfg ArchiveConfig) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("statement bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewArchiver(client, cfg.Bucket, cfg.Prefix), nil
}

// StatementKey names the object of a statement generated at t
func StatementKey(prefix, shop string, t time.Time) string {
	return path.Join(prefix, shop, fmt.Sprintf("commissions-%s.xlsx", t.UTC().Format("20060102-150405")))
}

// Archive uploads a statement and returns its object key
func (a *Archiver) Archive(ctx context.Context, shop string, at time.Time, body *bytes.Buffer) (string, error) {
	key := StatementKey(a.prefix, shop, at)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(a.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body.Bytes()),
		ContentType:  aws.String(ContentType),
		StorageClass: types.StorageClassStandardIa,
		Metadata:     map[string]string{"shop": shop},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload statement to S3: %w", err)
	}
	return key, nil
}

// URI returns the s3:// location of key
func (a *Archiver) URI(key string) string {
	return "s3://" + a.bucket + "/" + key
}
