// Package worker provides a fixed-size goroutine pool driven by binary
// semaphores.
//
// The Pool owns a FIFO job queue, a "has job" semaphore that wakes idle
// workers and an "all idle" semaphore that wakes callers of Wait. Jobs may
// be pushed before or after Run.
//
// # Basic Usage
//
//	pool, err := worker.NewPool(4)
//	if err != nil {
//	    return err
//	}
//	for i := range 40 {
//	    _ = pool.Push(func(arg any) int {
//	        fmt.Println("job", arg.(int))
//	        return 0
//	    }, i)
//	}
//	if err := pool.Run(ctx); err != nil {
//	    return err
//	}
//	pool.Wait()
//	pool.Stop()
//
// # Job Ownership
//
// The argument passed to Push belongs to the caller. The pool never copies,
// mutates or releases it; it only hands it to the job function. The job
// wrapper itself is owned by the pool from Push until the worker has run it.
//
// # Job Status
//
// A job function returns an int status: 0 means success, anything else is
// a failure. A panicking job is recovered, counted as failed and reported
// with StatusPanicked. Aggregated outcomes are available from Stats and,
// when configured, from a metrics.Metrics and an events.Bus.
//
// # Lifecycle
//
// Run may be called once. Wait blocks until the queue is empty and no
// worker is busy; several goroutines may Wait at the same time. Pause stops
// workers from fetching new jobs until Resume. Stop rejects further pushes,
// abandons queued jobs, lets in-flight jobs finish and joins every worker.
package worker
