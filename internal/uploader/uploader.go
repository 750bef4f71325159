// Package uploader publishes run directories to object storage.
package uploader

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"structest/internal/config"
	"structest/internal/util"
)

// Uploader publishes a run directory and returns its location.
type Uploader interface {
	Enabled() bool
	UploadDir(ctx context.Context, dir string) (string, error)
}

// NoopUploader is used when no storage backend is configured.
type NoopUploader struct{}

func (n NoopUploader) Enabled() bool {
	return false
}

func (n NoopUploader) UploadDir(ctx context.Context, dir string) (string, error) {
	return "", nil
}

// New returns the uploader for the enabled storage backends.
func New(ctx context.Context, storage config.StorageConfig) (Uploader, error) {
	if !storage.CloudEnabled() {
		return NoopUploader{}, nil
	}
	var targets multi
	if storage.S3.Enabled {
		u, err := NewS3(ctx, storage.S3)
		if err != nil {
			return nil, err
		}
		targets = append(targets, u)
	}
	if storage.GCS.Enabled {
		u, err := NewGCS(ctx, storage.GCS)
		if err != nil {
			return nil, err
		}
		targets = append(targets, u)
	}
	if len(targets) == 1 {
		return targets[0], nil
	}
	return targets, nil
}

// multi uploads to every backend and reports the first location.
type multi []Uploader

func (m multi) Enabled() bool {
	return len(m) > 0
}

func (m multi) UploadDir(ctx context.Context, dir string) (string, error) {
	var first string
	for _, u := range m {
		location, err := u.UploadDir(ctx, dir)
		if err != nil {
			return "", err
		}
		if first == "" {
			first = location
		} else {
			util.Debugf("run %s also uploaded to %s", filepath.Base(dir), location)
		}
	}
	return first, nil
}

// object is one local file and the key it is stored under.
type object struct {
	Path string
	Key  string
}

// dirObjects lists the files below dir keyed as prefix/<base>/<rel>.
func dirObjects(dir, prefix string) (string, []object, error) {
	base := filepath.Base(dir)
	root := base
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		root = prefix + "/" + base
	}
	var objects []object
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		objects = append(objects, object{Path: p, Key: path.Join(root, filepath.ToSlash(rel))})
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return root + "/", objects, nil
}
