// Package storage provides the object storage client used for listing snapshots.
//
// It wraps minio-go behind a narrow Client interface so callers can be tested with
// the testify mock in storage/mocks. The client works against MinIO or any S3
// compatible endpoint.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	if err != nil {
//	    return err
//	}
//	if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket); err != nil {
//	    return err
//	}
package storage
