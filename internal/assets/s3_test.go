package assets

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPresign(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://bucket.example.com/put/" + *in.Key}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://bucket.example.com/get/" + *in.Key}, nil
	}
}

func TestPresignedPutURL(t *testing.T) {
	stubPresign(t)
	s := New(Config{Region: "ap-northeast-1", Bucket: "receipts"})

	key, url, err := s.PresignedPutURL(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "receipts/"))
	assert.Equal(t, "https://bucket.example.com/put/"+key, url)
}

func TestPresignedGetURL(t *testing.T) {
	stubPresign(t)
	s := New(Config{Region: "ap-northeast-1", Bucket: "receipts"})

	url, err := s.PresignedGetURL(context.Background(), "receipts/2026/3/14/abc")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example.com/get/receipts/2026/3/14/abc", url)
}

func TestStorageKey_UniquePerCall(t *testing.T) {
	assert.NotEqual(t, storageKey(), storageKey())
}

func TestUpload(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		var err error
		gotBody, err = io.ReadAll(r.Body)
		require.NoError(t, err)
	}))
	t.Cleanup(srv.Close)

	require.NoError(t, Upload(context.Background(), srv.URL, []byte("jpeg bytes")))
	assert.Equal(t, []byte("jpeg bytes"), gotBody)
}

func TestUpload_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	err := Upload(context.Background(), srv.URL, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestHash(t *testing.T) {
	assert.Equal(t, "9e107d9d372bb6826bd81d3542a419d6", Hash([]byte("The quick brown fox jumps over the lazy dog")))
	assert.Equal(t, Hash([]byte("a")), Hash([]byte("a")))
	assert.NotEqual(t, Hash([]byte("a")), Hash([]byte("b")))
}
