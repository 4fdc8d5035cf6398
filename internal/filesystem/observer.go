package filesystem

// Observer records filesystem operation metrics. The metrics package provides
// the Prometheus-backed implementation; filesystem never imports it directly.
type Observer interface {
	// ObserveOperation records duration and error status for a whole operation.
	// operation is one of "copy", "move", "write".
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	ObserveRetryAttempt(retryOp, volume string)
	ObserveRetrySuccess(retryOp, volume string)
	ObserveRetryFailure(retryOp, volume string)
	ObserveRetryDuration(retryOp, volume string, durationSeconds float64)
	ObserveStaleError(retryOp, volume string)
}

// defaultObserver is set once at startup. Nil means metrics are skipped.
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
func SetObserver(o Observer) {
	defaultObserver = o
}
