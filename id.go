package delayq

import "github.com/xraph/delayq/id"

// ID is the primary identifier type for all delayq entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
