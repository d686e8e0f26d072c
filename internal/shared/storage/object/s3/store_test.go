package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"compliance-backend/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "reports/org-1/r.pdf", want: "reports/org-1/r.pdf"},
		{name: "simple prefix", prefix: "root", key: "reports/org-1/r.pdf", want: "root/reports/org-1/r.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "reports/org-1/r.pdf", want: "root/reports/org-1/r.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/reports/org-1/r.pdf", want: "root/reports/org-1/r.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "reports/org-1/r.pdf", want: "root/sub/reports/org-1/r.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

type fakeS3 struct {
	put     *s3.PutObjectInput
	body    []byte
	putErr  error
	expires time.Duration
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.put = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.body))}, nil
}

func (f *fakeS3) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + aws.ToString(params.Key)}, nil
}

func TestPutUsesPrefixAndEncryption(t *testing.T) {
	fake := &fakeS3{}
	store := NewWithClient(fake, fake, "reports-bucket", "tenant/", "")

	n, err := store.Put(context.Background(), "reports/org-1/r.pdf", strings.NewReader("%PDF-1.4"), object.PutOptions{
		ContentType: "application/pdf",
		Metadata:    map[string]string{"orgId": "org-1"},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != 8 {
		t.Fatalf("expected 8 bytes, got %d", n)
	}
	if got := aws.ToString(fake.put.Key); got != "tenant/reports/org-1/r.pdf" {
		t.Fatalf("unexpected key %q", got)
	}
	if fake.put.ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256, got %q", fake.put.ServerSideEncryption)
	}
	if fake.put.Metadata["orgId"] != "org-1" {
		t.Fatalf("metadata not forwarded: %+v", fake.put.Metadata)
	}

	url, err := store.URL(context.Background(), "reports/org-1/r.pdf", time.Hour)
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if url != "https://signed.example/tenant/reports/org-1/r.pdf" || fake.expires != time.Hour {
		t.Fatalf("unexpected presign url=%s expires=%s", url, fake.expires)
	}
}

func TestPutWithKMSKey(t *testing.T) {
	fake := &fakeS3{}
	store := NewWithClient(fake, fake, "b", "", "key-123")
	if _, err := store.Put(context.Background(), "a/b.pdf", strings.NewReader("x"), object.PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if fake.put.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(fake.put.SSEKMSKeyId) != "key-123" {
		t.Fatalf("expected kms encryption, got %+v", fake.put)
	}
	if aws.ToString(fake.put.ContentType) != "application/octet-stream" {
		t.Fatalf("unexpected default content type %q", aws.ToString(fake.put.ContentType))
	}
}

func TestPutWrapsClientError(t *testing.T) {
	boom := errors.New("boom")
	store := NewWithClient(&fakeS3{putErr: boom}, nil, "b", "", "")
	_, err := store.Put(context.Background(), "a/b.pdf", strings.NewReader("x"), object.PutOptions{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if _, err := store.Put(context.Background(), "../b.pdf", strings.NewReader("x"), object.PutOptions{}); err == nil {
		t.Fatalf("expected invalid key error")
	}
}
