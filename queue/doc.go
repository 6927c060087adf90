// Package queue provides the shared ordered claim queue used to
// coordinate competing dispatchers.
//
// The queue maps task IDs to a numeric score — the task's scheduled run
// time in epoch milliseconds. It supports exactly three operations:
// idempotent add, atomic conditional remove (the claim), and a
// range-query-by-score page of due IDs.
//
// [Redis] is the production implementation, backed by a single Sorted
// Set (ZADD / ZREM / ZRANGEBYSCORE). [Memory] mirrors its semantics
// in-process for tests.
//
// Due order is best-effort: entries become claimable in ascending score
// order, but no ordering is guaranteed across ties or across separate
// NextDue calls under concurrent mutation.
package queue
