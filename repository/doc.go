// Package repository reads converted patient repositories.
//
// A repository is described by its repository_config: dictionary and signal
// files, the index layout (MODE) and the data and index files. Open reads
// the config through any blobstore.BlobStore:
//
//	repo, err := repository.OpenFile(ctx, "/data/thin/rep.repository",
//	    repository.WithCache(256<<20))
//	...
//	glu, err := repo.GetByName(ctx, 5000123, "Glucose")
//	for i := range glu.Len() {
//	    rec := glu.At(i)
//	    ...
//	}
//
// Legacy and per-signal repositories load their packet indexes when opened.
// Index-table repositories load each signal's table the first time it is
// read; concurrent readers only wait on each other for that first load.
//
// Publish copies a repository to another store, config last.
package repository
