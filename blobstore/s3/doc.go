// Package s3 stores repositories in Amazon S3.
//
//	store, err := s3.New(ctx, "medical-repos",
//	    s3.WithPrefix("thin/2024-06/"),
//	    s3.WithRegion("eu-west-1"),
//	)
//
// Reads are ranged GETs, so a reader opened over the store only fetches the
// index tables and the records it asks for. Writes stream through the
// multipart uploader.
package s3
