// Package inframed converts raw clinical extracts into MedConvert
// repositories and reads them back.
//
// A conversion is described by a config file naming the dictionaries, the
// signal catalog and the input data files. Convert merges the inputs by
// patient, encodes every signal in its binary record layout and writes the
// per-signal index and data files plus the repository_config that ties them
// together:
//
//	ctx := context.Background()
//	rep, err := inframed.Convert(ctx, "convert.cfg",
//	    inframed.WithLogger(inframed.NewTextLogger(slog.LevelInfo)),
//	)
//
// # Reading
//
// OpenRepository maps the index and data files and serves the records of
// one patient and signal without copying:
//
//	repo, _ := inframed.OpenRepository(ctx, "out/rep.repository", inframed.WithCache(64<<20))
//	defer repo.Close()
//	vals, _ := repo.GetByName(ctx, 1000001, "GLU")
//	for i := range vals.Len() {
//	    fmt.Println(vals.At(i))
//	}
//
// # Publishing
//
// Publish copies a finished repository to any blobstore.BlobStore, for
// example S3 or MinIO. The repository_config is written after every other
// file, so readers never open a partial repository:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("repositories/2026-10/"))
//	m, _ := inframed.Publish(ctx, "out/rep.repository", store)
//	repo, _ := inframed.OpenRepositoryFrom(ctx, store, m.Config)
package inframed
