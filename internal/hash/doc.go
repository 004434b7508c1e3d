// Package hash provides the CRC32-Castagnoli checksums recorded in a
// published repository's manifest.
//
// For one-shot checksums:
//
//	sum := hash.CRC32C(data)
//
// For checksums of a stream being uploaded:
//
//	r := hash.NewReader(f)
//	io.Copy(dst, r)
//	sum, n := r.Sum32(), r.N()
package hash
