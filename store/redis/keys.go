package redis

// Redis key naming conventions for delayq data.
// All keys are prefixed with "delayq:" to avoid collisions.

const keyPrefix = "delayq:"

// taskKey returns the key for a task entity: delayq:task:{id}
func taskKey(id string) string { return keyPrefix + "task:" + id }

// taskIDsKey is the Set tracking all task IDs for enumeration.
const taskIDsKey = keyPrefix + "task_ids"
