// Package delayq provides a delayed task dispatch engine for Go. Tasks are
// persisted in a durable store and scheduled through a shared ordered claim
// queue (a Redis Sorted Set keyed by due time). Any number of competing
// dispatcher instances poll the queue and race to claim due tasks; each due
// task is executed exactly once.
//
// Delayq is designed as a library, not a service. Embed it, configure a
// store and a queue, register taskables as ordinary Go functions, and run
// one or more dispatchers.
//
// # Quick Start
//
//	reg := task.NewRegistry()
//	reg.Register("email.send", task.TaskableFunc(sendEmail))
//
//	d := runner.NewDispatcher(st, q, reg)
//	_ = d.Initialize(ctx) // re-seed the queue from the store
//	go d.Run(ctx)         // loop until ctx is cancelled
//
// # Architecture
//
// The queue is a coordination point only; the store is the system of
// record. The queue can be rebuilt from the store at any time via
// Dispatcher.Initialize, which is also the recovery path after a queue
// data loss. Claiming is a two-layer protocol: an atomic remove from the
// queue resolves steady-state contention, and the store's conditional
// ready-to-running update is the authoritative guard.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package delayq
