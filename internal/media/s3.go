// Package media uploads profile images and brand logos to S3-compatible
// object storage.
package media

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/logging"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/netx"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}

	putPresigned = netx.PutPresigned
)

// MaxImageSize caps uploads accepted by the Uploader.
const MaxImageSize = 5 << 20

const presignExpiry = 15 * time.Minute

// Config describes the bucket images go to.
type Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	// PublicBaseURL prefixes object keys to form the stored image URL.
	// When empty the presigned URL without its query string is used.
	PublicBaseURL string
}

// Uploader implements onboarding.ImageUploader.
type Uploader struct {
	cfg    Config
	http   *http.Client
	log    logging.Logger
	client *s3.PresignClient
}

func NewUploader(cfg Config, httpClient *http.Client, log logging.Logger) *Uploader {
	if log == nil {
		log = logging.Nop{}
	}
	return &Uploader{cfg: cfg, http: httpClient, log: log}
}

func (u *Uploader) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	if u.client != nil {
		return u.client, nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(u.cfg.Region)}
	if u.cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(u.cfg.AccessKey, u.cfg.SecretKey, "")))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if u.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(u.cfg.BaseEndpoint)
			// MinIO and most S3-compatible stores need path-style keys
			o.UsePathStyle = true
		}
	})
	u.client = newS3PresignClient(client)
	return u.client, nil
}

// Upload stores img under key and returns the URL to record in the intake.
func (u *Uploader) Upload(ctx context.Context, key string, img *models.ImageUpload) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", fmt.Errorf("upload %s: empty image", key)
	}
	if len(img.Data) > MaxImageSize {
		return "", fmt.Errorf("upload %s: image is %d bytes, limit is %d", key, len(img.Data), MaxImageSize)
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("upload %s: %s is not an image", key, contentType)
	}

	pc, err := u.presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	if err := putPresigned(ctx, u.http, req.URL, contentType, img.Data); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	location, err := u.publicURL(key, req.URL)
	if err != nil {
		return "", err
	}
	u.log.Info(ctx, "image uploaded", "key", key, "bytes", len(img.Data))
	return location, nil
}

func (u *Uploader) publicURL(key, presigned string) (string, error) {
	if u.cfg.PublicBaseURL != "" {
		return strings.TrimRight(u.cfg.PublicBaseURL, "/") + "/" + strings.TrimLeft(key, "/"), nil
	}
	p, err := url.Parse(presigned)
	if err != nil {
		return "", fmt.Errorf("parse presigned url: %w", err)
	}
	p.RawQuery = ""
	p.Fragment = ""
	return p.String(), nil
}
