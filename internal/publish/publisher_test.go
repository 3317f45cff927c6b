package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/planflat/internal/flatten"
)

type fakeStore struct {
	mu          sync.Mutex
	exists      bool
	existsErr   error
	made        []string
	existsCalls int
	putErr      error
	objects     map[string][]byte
	types       map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsCalls++
	return f.exists, f.existsErr
}

func (f *fakeStore) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.made = append(f.made, bucketName+"@"+opts.Region)
	f.exists = true
	return nil
}

func (f *fakeStore) FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucketName+"/"+objectName] = data
	f.types[objectName] = opts.ContentType
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: int64(len(data))}, nil
}

func writeDump(t *testing.T, files map[string]string) (string, []flatten.Mapping) {
	t.Helper()
	dir := t.TempDir()
	var mappings []flatten.Mapping
	for flat, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, flat), []byte(content), 0644))
		mappings = append(mappings, flatten.Mapping{FlatName: flat})
	}
	return dir, mappings
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing endpoint", Config{AccessKey: "a", SecretKey: "s", Bucket: "b"}, "endpoint"},
		{"missing credentials", Config{Endpoint: "localhost:9000", Bucket: "b"}, "access key"},
		{"missing bucket", Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, "bucket"},
		{"complete", Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b", Prefix: "/dumps/"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "us-east-1", p.region)
			assert.Equal(t, "dumps", p.prefix)
		})
	}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "dumps/7-auth/run-1/tasks-01.md", objectKey("dumps", "7-auth", "run-1", "tasks-01.md"))
	assert.Equal(t, "7-auth/run-1/a.txt", objectKey("", "7-auth", "run-1", "a.txt"))
}

func TestPublish(t *testing.T) {
	store := newFakeStore()
	p := newPublisher(store, "plans", "eu-west-1", "dumps")
	dir, mappings := writeDump(t, map[string]string{"README.md": "# Plan", "tasks-01.txt": "one"})

	result, err := p.Publish(context.Background(), "7-auth", "run-1", dir, mappings)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Objects)
	assert.Equal(t, int64(len("# Plan")+len("one")), result.Bytes)
	assert.Equal(t, "s3://plans/dumps/7-auth/run-1/", result.Location())
	assert.Equal(t, []byte("# Plan"), store.objects["plans/dumps/7-auth/run-1/README.md"])
	assert.Equal(t, []byte("one"), store.objects["plans/dumps/7-auth/run-1/tasks-01.txt"])
	assert.Equal(t, []string{"plans@eu-west-1"}, store.made)
	assert.Contains(t, store.types["dumps/7-auth/run-1/tasks-01.txt"], "text/plain")
}

func TestPublishChecksBucketOnce(t *testing.T) {
	store := newFakeStore()
	store.exists = true
	p := newPublisher(store, "plans", "us-east-1", "")
	dir, mappings := writeDump(t, map[string]string{"a.txt": "a"})

	for i := 0; i < 3; i++ {
		_, err := p.Publish(context.Background(), "p", "run", dir, mappings)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.existsCalls)
	assert.Empty(t, store.made)
}

func TestPublishErrors(t *testing.T) {
	dir, mappings := writeDump(t, map[string]string{"a.txt": "a"})

	t.Run("bucket check fails", func(t *testing.T) {
		store := newFakeStore()
		store.existsErr = errors.New("connection refused")
		p := newPublisher(store, "plans", "us-east-1", "")
		_, err := p.Publish(context.Background(), "p", "run", dir, mappings)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ensure bucket")
	})

	t.Run("upload fails", func(t *testing.T) {
		store := newFakeStore()
		store.putErr = errors.New("access denied")
		p := newPublisher(store, "plans", "us-east-1", "")
		result, err := p.Publish(context.Background(), "p", "run", dir, mappings)
		require.Error(t, err)
		assert.Equal(t, 0, result.Objects)
	})

	t.Run("missing identifiers", func(t *testing.T) {
		p := newPublisher(newFakeStore(), "plans", "us-east-1", "")
		_, err := p.Publish(context.Background(), "", "run", dir, mappings)
		assert.Error(t, err)
		_, err = p.Publish(context.Background(), "p", " ", dir, mappings)
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := newFakeStore()
		store.exists = true
		p := newPublisher(store, "plans", "us-east-1", "")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Publish(ctx, "p", "run", dir, mappings)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
