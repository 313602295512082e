package media

import "context"

// downloadSemaphore bounds the number of tracks simultaneously in the
// body-transfer region of Downloadable.Download (spec §5, concurrency cap
// 1). It is a buffered channel rather than golang.org/x/sync/semaphore
// because the only operation needed is acquire-one/release-one.
type downloadSemaphore chan struct{}

// newDownloadSemaphore builds a semaphore with capacity max(1, size).
func newDownloadSemaphore(size int) downloadSemaphore {
	if size < 1 {
		size = 1
	}

	return make(downloadSemaphore, size)
}

// Acquire blocks until a slot is free or ctx is done.
func (s downloadSemaphore) Acquire(ctx context.Context) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the slot acquired by a prior successful Acquire.
func (s downloadSemaphore) Release() {
	<-s
}
