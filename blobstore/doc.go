// Package blobstore abstracts where the files of a converted repository live.
//
// A BlobStore maps slash-separated names to immutable blobs. The reader opens
// index and data files through it and publishing copies a repository from one
// store to another.
//
// # Implementations
//
//   - LocalStore: a local directory, blobs are memory mapped
//   - MemoryStore: an in-process map, for tests
//   - s3.Store: Amazon S3 with ranged reads and multipart uploads
//   - minio.Store: any S3-compatible endpoint through minio-go
//
// Blobs that are addressable in memory also implement Mappable, which lets
// the reader hand out record slices without copying.
package blobstore
