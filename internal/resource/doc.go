// Package resource bounds the work a repository publish may do at once.
//
// A Controller combines two limits:
//
//   - Uploads: a weighted semaphore on concurrent file uploads
//   - IO: a token bucket on bytes read from local files for upload
//
// Usage:
//
//	rc := resource.NewController(resource.Config{
//	    MaxConcurrentUploads: 4,
//	    IOLimitBytesPerSec:   64 << 20,
//	})
//	if err := rc.AcquireUpload(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseUpload()
//	body := resource.NewRateLimitedReader(ctx, f, rc)
//
// A nil *Controller imposes no limits.
package resource
