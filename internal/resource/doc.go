// Package resource limits the transfer concurrency and bandwidth of dataset
// downloads.
//
// A Controller combines a weighted semaphore for transfer slots with a token
// bucket for bytes:
//
//	rc := resource.NewController(resource.Config{
//	    MaxTransfers:       4,
//	    IOLimitBytesPerSec: 100 * 1024 * 1024,
//	})
//
//	if err := rc.AcquireTransfer(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseTransfer()
//	r := resource.NewRateLimitedReader(ctx, body, rc)
//
// All methods handle a nil Controller gracefully: they become no-ops.
package resource
