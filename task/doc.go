// Package task defines the task entity, its state machine, the store
// contract, and the taskable registry.
//
// # Task Entity
//
// A [Task] represents a unit of work scheduled for a future instant. It
// embeds [delayq.Entity] for timestamps, carries an opaque params payload,
// and progresses through a state machine:
//
//	ready → running → completed
//	ready → running → timedout
//	ready → running → failed
//	ready → cancelled
//
// Terminal states accept no further transitions. Cancellation is only
// possible while the task is still ready — it races with the claim, and
// the store's state filter is the tie-break.
//
// # Taskables
//
// A [Taskable] is the capability a task's service name resolves to. Use
// [Define] for a typed handler whose params are JSON-deserialized before
// it runs:
//
//	task.Define(registry, "email.send",
//	    func(ctx context.Context, t *task.Task, p EmailParams) (string, error) {
//	        return "sent", mailer.Send(p.To, p.Subject)
//	    })
//
// # Store
//
// [Store] is the durable system of record. Its Start operation is the
// authoritative ready→running guard: it must be an atomic compare-and-set
// on the current state, returning zero affected rows to every loser.
package task
