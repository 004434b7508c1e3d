// Package fs abstracts the file operations of a conversion run.
//
//   - [FileSystem]: open, remove, rename, stat, mkdir
//   - [LocalFS]: the os backed implementation, exposed as [Default]
//   - [FaultyFS]: a wrapper that injects open, write and close failures
//
// The converter opens every input and output file through a FileSystem so
// tests can exercise the abort-and-clean-up path of a run:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("_GLU.data", fs.Fault{FailAfterBytes: 4})
//
// Operations take no context. Local file calls are short and the converter
// checks for cancellation between patients instead.
package fs
