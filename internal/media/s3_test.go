package media

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")

func stubAWS(t *testing.T, presignedURL string, presignErr error) (captured *s3.PutObjectInput, baseEndpoint *string) {
	t.Helper()

	origLoad, origNew, origPre, origPresign := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient, presignPutObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient, presignPutObject = origLoad, origNew, origPre, origPresign
	})

	captured = &s3.PutObjectInput{}
	baseEndpoint = new(string)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "ap-southeast-2", lo.Region)
		return aws.Config{Region: lo.Region}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var o s3.Options
		for _, fn := range optFns {
			fn(&o)
		}
		if o.BaseEndpoint != nil {
			*baseEndpoint = *o.BaseEndpoint
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		require.NotNil(t, c)
		return &s3.PresignClient{}
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		*captured = *in
		if presignErr != nil {
			return nil, presignErr
		}
		return &v4.PresignedHTTPRequest{URL: presignedURL, Method: http.MethodPut}, nil
	}
	return captured, baseEndpoint
}

func testConfig() Config {
	return Config{
		Bucket:       "epiclinx-media",
		Region:       "ap-southeast-2",
		BaseEndpoint: "http://127.0.0.1:9000",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
	}
}

func TestUpload_Success(t *testing.T) {
	var gotBody []byte
	var gotCT string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotCT = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	in, endpoint := stubAWS(t, ts.URL+"/epiclinx-media/profiles/creator/s1/me.png?X-Amz-Signature=abc", nil)

	u := NewUploader(testConfig(), ts.Client(), nil)
	loc, err := u.Upload(context.Background(), "profiles/creator/s1/me.png", &models.ImageUpload{
		Name: "me.png", ContentType: "image/png", Data: pngHeader,
	})
	require.NoError(t, err)

	assert.Equal(t, ts.URL+"/epiclinx-media/profiles/creator/s1/me.png", loc)
	assert.Equal(t, "epiclinx-media", aws.ToString(in.Bucket))
	assert.Equal(t, "profiles/creator/s1/me.png", aws.ToString(in.Key))
	assert.Equal(t, "http://127.0.0.1:9000", *endpoint)
	assert.Equal(t, pngHeader, gotBody)
	assert.Equal(t, "image/png", gotCT)
}

func TestUpload_PublicBaseURLAndDetectedType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	in, _ := stubAWS(t, ts.URL+"/x?sig=1", nil)

	cfg := testConfig()
	cfg.PublicBaseURL = "https://cdn.epiclinx.test/"
	u := NewUploader(cfg, ts.Client(), nil)

	loc, err := u.Upload(context.Background(), "profiles/brand/s2/logo.png", &models.ImageUpload{Name: "logo.png", Data: pngHeader})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.epiclinx.test/profiles/brand/s2/logo.png", loc)
	assert.Equal(t, "image/png", aws.ToString(in.ContentType))
}

func TestUpload_Rejects(t *testing.T) {
	stubAWS(t, "http://unused", nil)
	u := NewUploader(testConfig(), nil, nil)
	ctx := context.Background()

	_, err := u.Upload(ctx, "k", nil)
	require.Error(t, err)

	_, err = u.Upload(ctx, "k", &models.ImageUpload{Data: []byte("plain text, not an image")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")

	_, err = u.Upload(ctx, "k", &models.ImageUpload{ContentType: "image/png", Data: make([]byte, MaxImageSize+1)})
	require.Error(t, err)
}

func TestUpload_PresignError(t *testing.T) {
	stubAWS(t, "", errors.New("no credentials"))
	u := NewUploader(testConfig(), nil, nil)

	_, err := u.Upload(context.Background(), "k.png", &models.ImageUpload{ContentType: "image/png", Data: pngHeader})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestUpload_PutError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()
	stubAWS(t, ts.URL+"/k.png?sig=1", nil)

	u := NewUploader(testConfig(), ts.Client(), nil)
	_, err := u.Upload(context.Background(), "k.png", &models.ImageUpload{ContentType: "image/png", Data: pngHeader})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestUpload_LoadConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("boom")
	}

	u := NewUploader(testConfig(), nil, nil)
	_, err := u.Upload(context.Background(), "k.png", &models.ImageUpload{ContentType: "image/png", Data: pngHeader})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load aws config")
}
