package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"compraser-api/config"
	"compraser-api/internal/application/ports"
	"compraser-api/internal/domain/file_record"
	"compraser-api/pkg/filename"
)

const (
	downloadTimeout = 2 * time.Minute
	resourceTagKey  = "resource_type"
)

var ErrUnexpectedStatus = errors.New("unexpected status from asset store")

type Client struct {
	logger  *zap.Logger
	api     *s3.Client
	presign *s3.PresignClient
	http    *http.Client
	bucket  string
	ttl     time.Duration
	now     func() time.Time
}

func New(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.S3,
) (*Client, error) {
	if cfg.BucketUploads == "" || cfg.Region == "" {
		return nil, fmt.Errorf("incomplete S3 config: region and bucket are required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	c := newWithAWSConfig(logger, awsCfg, cfg)
	logger.Info("asset store configured",
		zap.String("bucket", cfg.BucketUploads),
		zap.String("endpoint", cfg.Endpoint),
	)

	return c, nil
}

func newWithAWSConfig(logger *zap.Logger, awsCfg aws.Config, cfg config.S3) *Client {
	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Client{
		logger:  logger,
		api:     api,
		presign: s3.NewPresignClient(api),
		http:    &http.Client{Timeout: downloadTimeout},
		bucket:  cfg.BucketUploads,
		ttl:     cfg.SignedURLTTL,
		now:     time.Now,
	}
}

func (c *Client) Put(ctx context.Context, in ports.AssetPut) (*ports.StoredAsset, error) {
	assetID := genAssetID(in.Folder, in.FileName, in.ContentType, c.now())
	tagging := url.Values{resourceTagKey: []string{string(in.ResourceType)}}.Encode()

	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(objectKey(in.ResourceType, assetID)),
		Body:          bytes.NewReader(in.Data),
		ContentLength: aws.Int64(int64(len(in.Data))),
		ContentType:   aws.String(in.ContentType),
		Tagging:       aws.String(tagging),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", assetID, err)
	}

	signed, err := c.SignedURL(ctx, assetID, in.ResourceType, c.ttl)
	if err != nil {
		return nil, err
	}

	return &ports.StoredAsset{
		AssetID: assetID,
		URL:     signed,
		Bytes:   int64(len(in.Data)),
	}, nil
}

func (c *Client) SignedURL(
	ctx context.Context,
	assetID string,
	rt file_record.ResourceType,
	ttl time.Duration,
) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(c.bucket),
		Key:                        aws.String(objectKey(rt, assetID)),
		ResponseContentDisposition: aws.String(mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(assetID)})),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", assetID, err)
	}

	return req.URL, nil
}

// Download fetches a signed URL; the caller closes the body.
func (c *Client) Download(ctx context.Context, signedURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return resp.Body, nil
}

func (c *Client) Delete(ctx context.Context, assetID string, rt file_record.ResourceType) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey(rt, assetID)),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", assetID, err)
	}

	return nil
}

// objectKey: "<resource-type>/<asset-id>", so the same id under another resource type is another object.
func objectKey(rt file_record.ResourceType, assetID string) string {
	return string(rt) + "/" + strings.TrimPrefix(assetID, "/")
}

// genAssetID: "<folder>/YYYY/MM/DD/<uuid>/<safe-file-name>"
func genAssetID(folder, name, contentType string, now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf(
		"%s/%04d/%02d/%02d/%s/%s",
		strings.Trim(folder, "/"),
		now.Year(), int(now.Month()), now.Day(),
		strings.ReplaceAll(uuid.NewString(), "-", ""),
		filename.Sanitize(name, contentType),
	)
}
