package tokenledger

import "github.com/lienworks/tokenledger/id"

// ID is the primary identifier type for all engine entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
