package domain

const (
	BroadcastIdle BroadcastState = iota
	BroadcastLockAnnounced
	BroadcastRacing
	BroadcastPartialAnnounced
	BroadcastDone
)

var (
	broadcastStateString = map[BroadcastState]string{
		BroadcastIdle:             "Idle",
		BroadcastLockAnnounced:    "LockAnnounced",
		BroadcastRacing:           "Racing",
		BroadcastPartialAnnounced: "PartialAnnounced",
		BroadcastDone:             "Done",
	}
)

// BroadcastState is the step reached by an aggregate bonded broadcast.
type BroadcastState int32

func (s BroadcastState) String() string {
	return broadcastStateString[s]
}

// BroadcastResult is the outcome of an aggregate bonded broadcast. Exactly one
// is produced per attempt.
type BroadcastResult struct {
	SignedPartialTransaction SignedTransaction
	Success                  bool
	Error                    string
	// Err is the typed cause of a failure (NetworkError, ListenerError,
	// TimeoutError or a context error).
	Err error
}

// IsTimeout returns whether the broadcast failed because the hash lock was
// not confirmed in time.
func (r BroadcastResult) IsTimeout() bool {
	_, ok := r.Err.(*TimeoutError)
	return ok
}

// CosignResult is the outcome of a cosignature attempt.
type CosignResult struct {
	TransactionHash string
	Success         bool
	Expired         bool
	AlreadySigned   bool
	Error           string
	Err             error
}
