package storage

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/pkg/config"
)

// MinIOClient wraps MinIO operations for media chunk archival.
type MinIOClient struct {
	client *minio.Client
	bucket string
}

// NewMinIOClient creates a new MinIO client
func NewMinIOClient(cfg *config.StorageConfig) (*MinIOClient, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	client := &MinIOClient{
		client: minioClient,
		bucket: cfg.BucketName,
	}

	if err := client.ensureBucket(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return client, nil
}

// ensureBucket creates the bucket when missing.
func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// PutObject uploads a single object.
func (m *MinIOClient) PutObject(ctx context.Context, objectName string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// ChunkRecorder archives captured audio chunks under
// meetings/<id>/chunk-<n>. Uploads run on a bounded worker pool and upload
// failures are logged, never fatal to the capture session.
type ChunkRecorder struct {
	mu        sync.Mutex
	client    *MinIOClient
	logger    *zap.Logger
	meetingID uuid.UUID
	seq       int
	buf       bytes.Buffer
	chunkSize int

	semaphore chan struct{}
	wg        sync.WaitGroup
}

// NewChunkRecorder creates a recorder for one meeting.
func NewChunkRecorder(client *MinIOClient, meetingID uuid.UUID, chunkSize int, logger *zap.Logger) *ChunkRecorder {
	if chunkSize <= 0 {
		chunkSize = 512 * 1024
	}
	return &ChunkRecorder{
		client:    client,
		logger:    logger,
		meetingID: meetingID,
		chunkSize: chunkSize,
		semaphore: make(chan struct{}, 2), // max 2 concurrent uploads
	}
}

// Write buffers audio and flushes a chunk object whenever the buffer fills.
func (r *ChunkRecorder) Write(data []byte) {
	r.mu.Lock()
	r.buf.Write(data)
	var flush []byte
	var seq int
	if r.buf.Len() >= r.chunkSize {
		flush = append([]byte(nil), r.buf.Bytes()...)
		r.buf.Reset()
		seq = r.seq
		r.seq++
	}
	r.mu.Unlock()

	if flush != nil {
		r.upload(seq, flush)
	}
}

// Close flushes the remaining buffer and waits for in-flight uploads.
func (r *ChunkRecorder) Close() {
	r.mu.Lock()
	var flush []byte
	var seq int
	if r.buf.Len() > 0 {
		flush = append([]byte(nil), r.buf.Bytes()...)
		r.buf.Reset()
		seq = r.seq
		r.seq++
	}
	r.mu.Unlock()

	if flush != nil {
		r.upload(seq, flush)
	}
	r.wg.Wait()
}

// upload ships one chunk asynchronously through the worker pool.
func (r *ChunkRecorder) upload(seq int, data []byte) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.semaphore <- struct{}{}
		defer func() { <-r.semaphore }()

		name := fmt.Sprintf("meetings/%s/chunk-%06d", r.meetingID, seq)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.client.PutObject(ctx, name, data, "application/octet-stream"); err != nil {
			r.logger.Warn("chunk upload failed",
				zap.String("object", name),
				zap.Error(err),
			)
		}
	}()
}
