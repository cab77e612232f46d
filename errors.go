package vecbucket

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecbucket/bucket"
)

var (
	// ErrNotBuilt is returned by Add and Search before Train or Build.
	ErrNotBuilt = fmt.Errorf("%w: index has no buckets", bucket.ErrPrecondition)

	// ErrInvalidWeights is returned when dynamic search weights are malformed.
	ErrInvalidWeights = errors.New("invalid bucket weights")
)

// ErrBucketNotFound indicates an Add into a bucket that was never trained.
type ErrBucketNotFound struct {
	Bucket int
}

func (e *ErrBucketNotFound) Error() string {
	return fmt.Sprintf("bucket %d not found", e.Bucket)
}

func (e *ErrBucketNotFound) Is(target error) bool { return target == bucket.ErrPrecondition }

// ErrBucketFailed wraps an error returned by one bucket.
type ErrBucketFailed struct {
	Bucket int
	cause  error
}

func (e *ErrBucketFailed) Error() string {
	return fmt.Sprintf("bucket %d: %v", e.Bucket, e.cause)
}

func (e *ErrBucketFailed) Unwrap() error { return e.cause }
