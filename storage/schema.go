package storage

import "fmt"

// StoreSpec declares one store of the persisted schema.
type StoreSpec struct {
	Name    string
	Since   int // Schema version that introduced the store
	Indexes []IndexDef
}

// IndexDef declares one secondary index of a store.
// KeyOf extracts the index value from an encoded record and is used to
// backfill an index created on a populated store.
type IndexDef struct {
	Name  string
	Since int
	KeyOf func(value []byte) ([]byte, error)
}

// ChangeKind identifies a structural schema change.
type ChangeKind int

const (
	// CreateStore adds a store.
	CreateStore ChangeKind = iota + 1
	// CreateIndex adds a secondary index to a store.
	CreateIndex
)

func (k ChangeKind) String() string {
	switch k {
	case CreateStore:
		return "create-store"
	case CreateIndex:
		return "create-index"
	}
	return fmt.Sprintf("change(%d)", int(k))
}

// Change is one additive schema change.
type Change struct {
	Kind  ChangeKind
	Store string
	Index IndexDef // Set for CreateIndex
}

func (c Change) String() string {
	if c.Kind == CreateIndex {
		return fmt.Sprintf("%s %s.%s", c.Kind, c.Store, c.Index.Name)
	}
	return fmt.Sprintf("%s %s", c.Kind, c.Store)
}

// PlanMigration returns the changes that bring a schema at version existing
// up to version target. Every store and index introduced at or below target
// is listed, in layout order with each store ahead of its indexes; the caller
// skips the ones that already exist, which keeps repeated runs harmless.
// No changes are planned when existing is already at target. Migrations are
// additive only: nothing is ever dropped or renamed.
func PlanMigration(existing, target int, layout []StoreSpec) ([]Change, error) {
	if target < 1 {
		return nil, fmt.Errorf("invalid target schema version %d", target)
	}
	if existing > target {
		return nil, fmt.Errorf("%w: stored %d, requested %d", ErrVersionDowngrade, existing, target)
	}
	if existing == target {
		return nil, nil
	}

	var changes []Change
	for _, store := range layout {
		if store.Since > target {
			continue
		}
		changes = append(changes, Change{Kind: CreateStore, Store: store.Name})
		for _, idx := range store.Indexes {
			if idx.Since > target {
				continue
			}
			changes = append(changes, Change{Kind: CreateIndex, Store: store.Name, Index: idx})
		}
	}
	return changes, nil
}
