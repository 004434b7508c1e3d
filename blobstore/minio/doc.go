// Package minio stores repositories on MinIO or another S3-compatible server
// (Ceph, Garage, SeaweedFS) through the minio-go client, with no AWS SDK
// dependency.
//
//	store, err := minio.Dial(ctx, minio.Config{
//	    Endpoint:  "minio.internal:9000",
//	    AccessKey: key,
//	    SecretKey: secret,
//	    Bucket:    "repositories",
//	    Prefix:    "thin/2024-06",
//	})
package minio
