package badger

import "github.com/poiesic/chatvault/storage"

// Key prefixes for different data types.
// Store and index names are length-prefixed so no name is a prefix of another.
const (
	recordTag  = 'r'
	indexTag   = 'i'
	catalogTag = 's'
)

const (
	catalogVersion = "version"
	catalogStore   = "store"
	catalogIndex   = "index"
)

func join(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}

// makeRecordPrefix generates the prefix shared by every record of a store.
// Format: r:store
func makeRecordPrefix(store string) []byte {
	return join([]byte{recordTag}, storage.StringKey(store))
}

// makeRecordKey generates the primary key of a record.
// Format: r:store:id
func makeRecordKey(store, id string) []byte {
	return join(makeRecordPrefix(store), []byte(id))
}

// makeIndexPrefix generates the prefix shared by every entry of one index.
// Format: i:store:index
func makeIndexPrefix(store, index string) []byte {
	return join(makeStoreIndexPrefix(store), storage.StringKey(index))
}

// makeIndexValuePrefix generates a partial key matching one indexed value.
// Format: i:store:index:value
func makeIndexValuePrefix(store, index string, value []byte) []byte {
	return join(makeIndexPrefix(store, index), value)
}

// makeIndexKey generates the composite key of an index entry.
// Format: i:store:index:value:id
func makeIndexKey(store, index string, value []byte, id string) []byte {
	return join(makeIndexValuePrefix(store, index, value), []byte(id))
}

func makeVersionKey() []byte {
	return join([]byte{catalogTag}, storage.StringKey(catalogVersion))
}

func makeStoreCatalogKey(store string) []byte {
	return join([]byte{catalogTag}, storage.StringKey(catalogStore), storage.StringKey(store))
}

func makeIndexCatalogKey(store, index string) []byte {
	return join([]byte{catalogTag}, storage.StringKey(catalogIndex), storage.StringKey(store), storage.StringKey(index))
}

// makeStoreIndexPrefix generates the prefix shared by every index entry of a store.
// Format: i:store
func makeStoreIndexPrefix(store string) []byte {
	return join([]byte{indexTag}, storage.StringKey(store))
}
