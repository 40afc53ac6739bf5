// Package models defines client-side data models shared by the local store,
// the sync engine, and the remote API client.
package models

// Collection is a named partition of records sharing a schema.
type Collection string

const (
	CollectionProduction Collection = "production"
	CollectionFinancial  Collection = "financial"
	CollectionHealth     Collection = "health"
	CollectionCows       Collection = "cows"
	CollectionPoultry    Collection = "poultry"
)

// SyncableCollections is the explicit list of collections participating in
// synchronization. The store and the sync engine both iterate this list so a
// collection cannot silently drop out of sync.
func SyncableCollections() []Collection {
	return []Collection{
		CollectionProduction,
		CollectionFinancial,
		CollectionHealth,
		CollectionCows,
		CollectionPoultry,
	}
}

// Valid reports whether c names a known record collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionProduction, CollectionFinancial, CollectionHealth,
		CollectionCows, CollectionPoultry:
		return true
	}
	return false
}

func (c Collection) String() string {
	return string(c)
}
