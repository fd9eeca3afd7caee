package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreConfig holds the S3-compatible endpoint settings.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectStore keeps derivatives in an S3-compatible bucket (MinIO, S3,
// R2...). Keys are used as object names unchanged.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// NewObjectStore creates a client for cfg. It does not touch the network;
// call EnsureBucket before first use.
func NewObjectStore(cfg ObjectStoreConfig) (*ObjectStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	return &ObjectStore{client: mc, bucket: cfg.Bucket}, nil
}

func (o *ObjectStore) Name() string {
	return "objectstore"
}

// EnsureBucket creates the bucket if it does not exist yet.
func (o *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := o.client.BucketExists(ctx, o.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", o.bucket, err)
	}
	if exists {
		return nil
	}
	if err := o.client.MakeBucket(ctx, o.bucket, minio.MakeBucketOptions{}); err != nil {
		// Another node may have created it in the meantime.
		if exists, checkErr := o.client.BucketExists(ctx, o.bucket); checkErr == nil && exists {
			return nil
		}
		return fmt.Errorf("creating bucket %s: %w", o.bucket, err)
	}
	return nil
}

func (o *ObjectStore) Read(ctx context.Context, key string) ([]byte, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting object %s: %w", key, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		if isMissingObject(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	return data, nil
}

func (o *ObjectStore) Write(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := o.client.PutObject(ctx, o.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("putting object %s: %w", key, err)
	}
	return nil
}

func (o *ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := o.client.StatObject(ctx, o.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isMissingObject(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat object %s: %w", key, err)
}

// List uses a non-recursive listing, which reports sub-"directories" as
// common prefixes ending in a slash.
func (o *ObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	dir := strings.TrimSuffix(prefix, "/") + "/"
	seen := make(map[string]struct{})
	for obj := range o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{Prefix: dir}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing %s: %w", prefix, obj.Err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(obj.Key, dir), "/")
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (o *ObjectStore) Delete(ctx context.Context, prefix string) error {
	dir := strings.TrimSuffix(prefix, "/") + "/"
	if dir == "/" {
		return fmt.Errorf("refusing to delete the whole bucket")
	}

	// Cancelling stops the lister if removal bails out early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)
	go func() {
		defer close(objects)
		for obj := range o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{Prefix: dir, Recursive: true}) {
			if obj.Err != nil {
				listErr <- obj.Err
				return
			}
			select {
			case objects <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()

	for rerr := range o.client.RemoveObjects(ctx, o.bucket, objects, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil && !isMissingObject(rerr.Err) {
			return fmt.Errorf("removing %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	select {
	case err := <-listErr:
		return fmt.Errorf("listing %s for delete: %w", prefix, err)
	default:
		return nil
	}
}

func isMissingObject(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}
