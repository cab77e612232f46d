//go:build !faiss

package bucket

import "fmt"

// newIVFReference reports that the FAISS-backed variant is not compiled in.
// Build with -tags faiss and libfaiss_c installed to enable it.
func newIVFReference(...Option) (Bucket, error) {
	return nil, fmt.Errorf("%w: %s requires the faiss build tag", ErrUnsupportedKind, KindIVFReference)
}
