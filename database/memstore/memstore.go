// Package memstore is a table store held in a go-memdb database. It backs the
// "memory" driver for demos and local runs; rows do not survive a restart.
package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-memdb"
	"github.com/yeremiapane/mesas-live/models"
)

const tableName = "mesas"

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableName: {
			Name: tableName,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.UintFieldIndex{Field: "ID"},
				},
			},
		},
	},
}

type Store struct {
	db *memdb.MemDB
}

// New creates a store provisioned with the given rows.
func New(tables ...models.Table) (*Store, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, err
	}

	txn := db.Txn(true)
	defer txn.Abort()
	for i := range tables {
		t := tables[i]
		if t.ID == 0 {
			return nil, fmt.Errorf("memstore: table %q has no id", t.Name)
		}
		if err := txn.Insert(tableName, &t); err != nil {
			return nil, err
		}
	}
	txn.Commit()

	return &Store{db: db}, nil
}

func (s *Store) ListTables(ctx context.Context) ([]models.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableName, "id")
	if err != nil {
		return nil, err
	}
	var out []models.Table
	for obj := it.Next(); obj != nil; obj = it.Next() {
		out = append(out, *obj.(*models.Table))
	}
	// the uvarint index key does not sort numerically
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ReserveIfVacant(ctx context.Context, key uint, name string, seats int) ([]models.Table, error) {
	return s.update(ctx, key, true, func(t *models.Table) {
		t.Name = name
		t.SeatCount = seats
		t.Occupied = true
	})
}

func (s *Store) UpdateParty(ctx context.Context, key uint, name string, seats int) ([]models.Table, error) {
	return s.update(ctx, key, false, func(t *models.Table) {
		t.Name = name
		t.SeatCount = seats
		t.Occupied = true
	})
}

func (s *Store) SetOccupancy(ctx context.Context, key uint, name string, seats int, occupied bool) ([]models.Table, error) {
	return s.update(ctx, key, false, func(t *models.Table) {
		t.Name = name
		t.SeatCount = seats
		t.Occupied = occupied
	})
}

// update runs inside a write transaction; memdb admits one writer at a time,
// so the vacancy check and the write cannot interleave with another claim.
func (s *Store) update(ctx context.Context, key uint, requireVacant bool, apply func(*models.Table)) ([]models.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableName, "id", key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	current := raw.(*models.Table)
	if requireVacant && current.Occupied {
		return nil, nil
	}

	// objects in memdb are immutable, write a copy
	next := *current
	apply(&next)
	if err := txn.Insert(tableName, &next); err != nil {
		return nil, err
	}
	txn.Commit()

	return []models.Table{next}, nil
}
