package delayq

import "time"

// Entity carries the audit timestamps shared by all persisted delayq
// records. Stores set UpdatedAt on every write.
type Entity struct {
	CreatedAt time.Time `json:"created_at" bun:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bun:"updated_at" bson:"updated_at"`
}
