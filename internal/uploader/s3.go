package uploader

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"structest/internal/config"
	"structest/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// SummarySuffix marks the run summary objects inside a bucket.
const SummarySuffix = "/summary.json"

// S3Uploader uploads run directories to S3-compatible storage.
type S3Uploader struct {
	cfg    config.S3Config
	client *s3.Client
}

// NewS3 constructs an uploader from S3 configuration.
func NewS3(ctx context.Context, cfg config.S3Config) (*S3Uploader, error) {
	if !cfg.Enabled {
		return &S3Uploader{cfg: cfg}, nil
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &S3Uploader{cfg: cfg, client: client}, nil
}

// NewS3Client builds an S3 client honoring custom endpoints and static
// credentials.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Enabled reports whether S3 uploads are configured.
func (u *S3Uploader) Enabled() bool {
	return u.cfg.Enabled
}

// UploadDir uploads a run directory and returns its S3 URL prefix.
func (u *S3Uploader) UploadDir(ctx context.Context, dir string) (string, error) {
	if !u.cfg.Enabled {
		return "", nil
	}
	if u.client == nil {
		return "", fmt.Errorf("s3 uploader is not initialized")
	}
	root, objects, err := dirObjects(dir, u.cfg.Prefix)
	if err != nil {
		return "", err
	}
	for _, obj := range objects {
		if err := u.uploadFile(ctx, obj); err != nil {
			return "", errors.Wrapf(err, "upload %s", obj.Key)
		}
	}
	return fmt.Sprintf("s3://%s/%s", u.cfg.Bucket, root), nil
}

func (u *S3Uploader) uploadFile(ctx context.Context, obj object) error {
	file, err := os.Open(obj.Path)
	if err != nil {
		return err
	}
	defer util.CloseWithErr(file, "s3 upload file")

	info, err := file.Stat()
	if err != nil {
		return err
	}
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(obj.Key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
	})
	return err
}

// ParseS3URI splits s3://bucket/prefix into bucket and a slash-terminated
// prefix.
func ParseS3URI(input string) (bucket string, prefix string, err error) {
	trimmed := strings.TrimPrefix(input, "s3://")
	if trimmed == "" || strings.HasPrefix(trimmed, "/") {
		return "", "", fmt.Errorf("missing s3 bucket in %q", input)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = strings.TrimPrefix(parts[1], "/")
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
	}
	return bucket, prefix, nil
}

// ReadSummaries downloads every run summary below an s3:// URI. The result
// maps the run location to the raw summary bytes.
func ReadSummaries(ctx context.Context, cfg config.S3Config, uri string) (map[string][]byte, error) {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	keys, err := listSummaryKeys(ctx, client, bucket, prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		data, err := readObject(ctx, client, bucket, key)
		if err != nil {
			util.Warnf("skip s3://%s/%s: %v", bucket, key, err)
			continue
		}
		out["s3://"+bucket+"/"+strings.TrimSuffix(key, SummarySuffix)] = data
	}
	return out, nil
}

func listSummaryKeys(ctx context.Context, client *s3.Client, bucket, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "list s3://%s/%s", bucket, prefix)
		}
		for _, obj := range page.Contents {
			if key := aws.ToString(obj.Key); strings.HasSuffix(key, SummarySuffix) {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func readObject(ctx context.Context, client *s3.Client, bucket, key string) ([]byte, error) {
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer util.CloseWithErr(resp.Body, "s3 response body")
	return io.ReadAll(resp.Body)
}
