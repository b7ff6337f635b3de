package tally

// Dispatch describes how Chunks are assigned to workers
type Dispatch = string

const (
	// DispatchPull indicates that workers pull Chunks from a single shared queue
	//   e.g. engine.Options{Dispatch: tally.DispatchPull}
	DispatchPull Dispatch = "pull"
	// DispatchPush indicates that Chunks are routed round-robin to a bounded mailbox per worker
	//   e.g. engine.Options{Dispatch: tally.DispatchPush}
	DispatchPush Dispatch = "push"
)
