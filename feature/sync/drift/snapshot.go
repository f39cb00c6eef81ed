package drift

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"marketplace-sync/core/storage"

	"github.com/minio/minio-go/v7"
)

// SnapshotStore keeps the last-fetched listings of each pair in object storage.
type SnapshotStore struct {
	client storage.Client
	bucket string
}

// NewSnapshotStore creates a store writing to bucket.
func NewSnapshotStore(client storage.Client, bucket string) *SnapshotStore {
	return &SnapshotStore{client: client, bucket: bucket}
}

// ObjectName returns the object key of a pair's snapshots.
func ObjectName(accountID, productID int64) string {
	return fmt.Sprintf("snapshots/%d/%d.json", accountID, productID)
}

// Save replaces the snapshots of a pair.
func (s *SnapshotStore) Save(ctx context.Context, accountID, productID int64, snapshots []Snapshot) error {
	data, err := json.Marshal(snapshots)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshots: %w", err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, ObjectName(accountID, productID), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload snapshots: %w", err)
	}
	return nil
}

// Load returns the snapshots of a pair, or nil when none were stored.
func (s *SnapshotStore) Load(ctx context.Context, accountID, productID int64) ([]Snapshot, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ObjectName(accountID, productID), minio.GetObjectOptions{})
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshots: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}

	var snapshots []Snapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to parse snapshots: %w", err)
	}
	return snapshots, nil
}

// Delete removes the snapshots of a pair.
func (s *SnapshotStore) Delete(ctx context.Context, accountID, productID int64) error {
	err := s.client.RemoveObject(ctx, s.bucket, ObjectName(accountID, productID), minio.RemoveObjectOptions{})
	if err != nil && !storage.IsNotFound(err) {
		return fmt.Errorf("failed to remove snapshots: %w", err)
	}
	return nil
}
