package delayq

import "time"

// Config holds tuning knobs for a Dispatcher.
type Config struct {
	// BackoffMin is the lower bound of the randomized sleep applied when
	// no task is due. The jitter avoids synchronized polling across
	// competing dispatcher instances.
	BackoffMin time.Duration

	// BackoffMax is the upper bound of the randomized idle sleep.
	BackoffMax time.Duration

	// FetchOffset and FetchLimit bound the due-task page pulled from the
	// claim queue each iteration. The dispatcher claims one task per
	// iteration, so FetchLimit is normally 1.
	FetchOffset int64
	FetchLimit  int64

	// ErrorBackoff is how long the run loop sleeps after a store or
	// queue failure before retrying.
	ErrorBackoff time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BackoffMin:   500 * time.Millisecond,
		BackoffMax:   1500 * time.Millisecond,
		FetchOffset:  0,
		FetchLimit:   1,
		ErrorBackoff: time.Second,
	}
}
