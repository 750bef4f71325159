package uploader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"structest/internal/config"
)

func TestNewWithoutBackendsIsNoop(t *testing.T) {
	u, err := New(context.Background(), config.StorageConfig{})
	if err != nil {
		t.Fatalf("new uploader: %v", err)
	}
	if u.Enabled() {
		t.Fatalf("expected disabled uploader")
	}
	location, err := u.UploadDir(context.Background(), t.TempDir())
	if err != nil || location != "" {
		t.Fatalf("location=%q err=%v", location, err)
	}
}

func TestDisabledBackendsSkipUpload(t *testing.T) {
	s3u, err := NewS3(context.Background(), config.S3Config{Bucket: "b"})
	if err != nil {
		t.Fatalf("new s3: %v", err)
	}
	gcsu, err := NewGCS(context.Background(), config.GCSConfig{Bucket: "b"})
	if err != nil {
		t.Fatalf("new gcs: %v", err)
	}
	for _, u := range []Uploader{s3u, gcsu} {
		if u.Enabled() {
			t.Fatalf("%T must be disabled", u)
		}
		if location, err := u.UploadDir(context.Background(), "missing"); err != nil || location != "" {
			t.Fatalf("%T location=%q err=%v", u, location, err)
		}
	}
}

func TestDirObjects(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run_0001_abc")
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"summary.json", "logs/structest.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	root, objects, err := dirObjects(dir, "/ex01/")
	if err != nil {
		t.Fatalf("dir objects: %v", err)
	}
	if root != "ex01/run_0001_abc/" {
		t.Fatalf("root=%q", root)
	}
	if len(objects) != 2 || objects[0].Key != "ex01/run_0001_abc/logs/structest.log" || objects[1].Key != "ex01/run_0001_abc/summary.json" {
		t.Fatalf("objects=%+v", objects)
	}
}

func TestParseS3URI(t *testing.T) {
	cases := []struct {
		in, bucket, prefix string
		wantErr            bool
	}{
		{in: "s3://grading", bucket: "grading"},
		{in: "s3://grading/ex01", bucket: "grading", prefix: "ex01/"},
		{in: "s3://grading//ex01/", bucket: "grading", prefix: "ex01/"},
		{in: "s3://", wantErr: true},
		{in: "s3:///ex01", wantErr: true},
	}
	for _, tc := range cases {
		bucket, prefix, err := ParseS3URI(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.in)
			}
			continue
		}
		if err != nil || bucket != tc.bucket || prefix != tc.prefix {
			t.Fatalf("%s: bucket=%q prefix=%q err=%v", tc.in, bucket, prefix, err)
		}
	}
}
