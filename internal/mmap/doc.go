// Package mmap provides read-only memory-mapped file access.
//
// Dataset files (fvecs, ivecs, u8vecs) are decoded straight from the
// mapping instead of being read through a buffer first.
//
//	m, err := mmap.Open("base.fvecs")
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix uses mmap(2) and madvise(2); Windows uses CreateFileMapping and
// MapViewOfFile, where Advise is a no-op.
//
// A Mapping is safe for concurrent reads. Close is idempotent, but callers
// must not touch a slice returned by Bytes after Close.
package mmap
