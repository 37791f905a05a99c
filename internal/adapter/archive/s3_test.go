package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeUploader struct {
	bucket, key string
	body        []byte
	err         error
}

func (f *fakeUploader) Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.body, _ = io.ReadAll(in.Body)
	return &manager.UploadOutput{}, nil
}

func TestArchiveUploadsUnderPrefix(t *testing.T) {
	src := filepath.Join(t.TempDir(), "scan.pdf")
	os.WriteFile(src, []byte("%PDF-1.4 body"), 0644)

	up := &fakeUploader{}
	a := NewS3ArchiverWithUploader(up, "docs", "originals")
	uri, err := a.Archive(context.Background(), "abcd/scan.pdf", src)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if uri != "s3://docs/originals/abcd/scan.pdf" {
		t.Errorf("unexpected uri %s", uri)
	}
	if up.bucket != "docs" || up.key != "originals/abcd/scan.pdf" || string(up.body) != "%PDF-1.4 body" {
		t.Errorf("unexpected upload %+v", up)
	}
}

func TestArchiveUploadFailure(t *testing.T) {
	src := filepath.Join(t.TempDir(), "scan.pdf")
	os.WriteFile(src, []byte("x"), 0644)

	boom := errors.New("access denied")
	a := NewS3ArchiverWithUploader(&fakeUploader{err: boom}, "docs", "")
	if _, err := a.Archive(context.Background(), "k", src); !errors.Is(err, boom) {
		t.Errorf("expected upload error, got %v", err)
	}
}

func TestNewS3ArchiverRequiresBucket(t *testing.T) {
	if _, err := NewS3Archiver(Config{}); err == nil {
		t.Error("expected error without bucket")
	}
	if _, err := NewS3Archiver(Config{Bucket: "docs", Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "b"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
