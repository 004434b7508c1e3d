package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inframed/inframed"
	"github.com/inframed/inframed/blobstore"
	"github.com/inframed/inframed/blobstore/minio"
	"github.com/inframed/inframed/blobstore/s3"
)

func (a *app) publishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <repository_config>",
		Short: "Copy a repository to S3 or MinIO",
		Long: `Upload every file of a repository, then a manifest with sizes and
CRC32C checksums, then the repository_config. Readers polling for the config
never see a partial repository.

Credentials for S3 come from the default AWS chain. MinIO credentials may be
given as flags or as INFRAMED_MINIO_ACCESS_KEY and INFRAMED_MINIO_SECRET_KEY.

Example:
  medconvert publish --s3-bucket reps --s3-prefix 2026-10/ out/rep.repository
  medconvert publish --minio-endpoint localhost:9000 --minio-bucket reps out/rep.repository`,
		Args: cobra.ExactArgs(1),
		RunE: a.runPublish,
	}
	f := cmd.Flags()
	f.String("s3-bucket", "", "S3 bucket")
	f.String("s3-prefix", "", "S3 key prefix")
	f.String("s3-region", "", "S3 region")
	f.String("s3-endpoint", "", "S3-compatible endpoint URL")
	f.String("minio-endpoint", "", "MinIO endpoint host:port")
	f.String("minio-bucket", "", "MinIO bucket")
	f.String("minio-prefix", "", "MinIO key prefix")
	f.String("minio-access-key", "", "MinIO access key")
	f.String("minio-secret-key", "", "MinIO secret key")
	f.Bool("minio-secure", false, "use TLS for MinIO")
	f.Int("concurrency", 4, "parallel uploads")
	f.Int64("rate", 0, "upload limit in bytes per second, 0 for none")
	return cmd
}

func (a *app) store(cmd *cobra.Command) (blobstore.BlobStore, error) {
	ctx := cmd.Context()
	s3Bucket, minioBucket := a.v.GetString("s3-bucket"), a.v.GetString("minio-bucket")
	switch {
	case s3Bucket != "" && minioBucket != "":
		return nil, errors.New("--s3-bucket and --minio-bucket are exclusive")
	case s3Bucket != "":
		opts := []func(*s3.Options){s3.WithPrefix(a.v.GetString("s3-prefix"))}
		if region := a.v.GetString("s3-region"); region != "" {
			opts = append(opts, s3.WithRegion(region))
		}
		if endpoint := a.v.GetString("s3-endpoint"); endpoint != "" {
			opts = append(opts, s3.WithEndpoint(endpoint))
		}
		return s3.New(ctx, s3Bucket, opts...)
	case minioBucket != "":
		return minio.Dial(ctx, minio.Config{
			Endpoint:  a.v.GetString("minio-endpoint"),
			AccessKey: a.v.GetString("minio-access-key"),
			SecretKey: a.v.GetString("minio-secret-key"),
			Secure:    a.v.GetBool("minio-secure"),
			Bucket:    minioBucket,
			Prefix:    a.v.GetString("minio-prefix"),
		})
	default:
		return nil, errors.New("one of --s3-bucket or --minio-bucket is required")
	}
}

func (a *app) runPublish(cmd *cobra.Command, args []string) error {
	log, err := a.logger()
	if err != nil {
		return err
	}
	dst, err := a.store(cmd)
	if err != nil {
		return err
	}
	opts := []inframed.Option{
		inframed.WithLogger(log),
		inframed.WithUploadConcurrency(a.v.GetInt("concurrency")),
	}
	if rate := a.v.GetInt64("rate"); rate > 0 {
		opts = append(opts, inframed.WithUploadRate(rate))
	}
	m, err := inframed.Publish(cmd.Context(), args[0], dst, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "published %s with %d files\n", m.Config, len(m.Files))
	return nil
}
