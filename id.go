package napstore

import "github.com/phamhp/napstore/id"

// ID is the primary identifier type for all napstore entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
