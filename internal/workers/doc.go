/*
Package workers sizes goroutine pools from GOMAXPROCS rather than
runtime.NumCPU, so a process limited to two CPUs by its container does not
spawn one resampling goroutine per host core.

	n := workers.ForCPU(len(sizes)) // never more workers than frames

Set ICONSYNC_ENCODE_WORKERS to pin the count, for example to 1 when encoding
on a shared machine.
*/
package workers
