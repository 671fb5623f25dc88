package reservation

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/mesas-live/models"
	"github.com/yeremiapane/mesas-live/utils"
)

// Store is the contract of the relational table store. Each update returns
// the rows it changed, which is empty when the filter matched nothing.
type Store interface {
	ListTables(ctx context.Context) ([]models.Table, error)
	// ReserveIfVacant sets name, seat count and occupied=true only where the
	// row is currently vacant.
	ReserveIfVacant(ctx context.Context, key uint, name string, seats int) ([]models.Table, error)
	// UpdateParty sets name, seat count and occupied=true unconditionally.
	UpdateParty(ctx context.Context, key uint, name string, seats int) ([]models.Table, error)
	SetOccupancy(ctx context.Context, key uint, name string, seats int, occupied bool) ([]models.Table, error)
}

// Emitter is told about every committed mutation. Emit has no result: the
// mutation outcome never depends on notification delivery.
type Emitter interface {
	Emit()
}

// Party is the payload of reserve, edit and setOccupancy.
type Party struct {
	Name      string `json:"name"`
	SeatCount int    `json:"seatCount"`
}

func (p Party) validate() (Party, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return p, NewValidationError("name", "is required")
	}
	if p.SeatCount <= 0 {
		return p, NewValidationError("seatCount", "must be a positive integer")
	}
	return Party{Name: name, SeatCount: p.SeatCount}, nil
}

type Engine struct {
	store  Store
	notify Emitter
}

func NewEngine(store Store, notify Emitter) *Engine {
	return &Engine{store: store, notify: notify}
}

// List -> semua meja, urut berdasarkan id
func (e *Engine) List(ctx context.Context) ([]models.Table, error) {
	tables, err := e.store.ListTables(ctx)
	if err != nil {
		return nil, e.storeFailure("list", 0, err)
	}
	return tables, nil
}

// Reserve claims a vacant table. Only one of several concurrent claims on the
// same table can match the vacancy filter; the rest get ErrConflict, as does a
// claim on an unknown table.
func (e *Engine) Reserve(ctx context.Context, id int, p Party) (models.Table, error) {
	p, err := p.validate()
	if err != nil {
		return models.Table{}, err
	}
	key := StorageKey(id)
	rows, err := e.store.ReserveIfVacant(ctx, key, p.Name, p.SeatCount)
	if err != nil {
		return models.Table{}, e.storeFailure("reserve", key, err)
	}
	if len(rows) == 0 {
		return models.Table{}, ErrConflict
	}
	e.committed("reserve", rows[0])
	return rows[0], nil
}

// Edit -> ubah detail rombongan, meja tetap/menjadi terisi
func (e *Engine) Edit(ctx context.Context, id int, p Party) (models.Table, error) {
	p, err := p.validate()
	if err != nil {
		return models.Table{}, err
	}
	key := StorageKey(id)
	rows, err := e.store.UpdateParty(ctx, key, p.Name, p.SeatCount)
	if err != nil {
		return models.Table{}, e.storeFailure("edit", key, err)
	}
	if len(rows) == 0 {
		return models.Table{}, ErrNotFound
	}
	e.committed("edit", rows[0])
	return rows[0], nil
}

// SetOccupancy writes all three fields as given. occupied must be present.
func (e *Engine) SetOccupancy(ctx context.Context, id int, p Party, occupied *bool) (models.Table, error) {
	if occupied == nil {
		return models.Table{}, NewValidationError("occupied", "must be a boolean")
	}
	p, err := p.validate()
	if err != nil {
		return models.Table{}, err
	}
	key := StorageKey(id)
	rows, err := e.store.SetOccupancy(ctx, key, p.Name, p.SeatCount, *occupied)
	if err != nil {
		return models.Table{}, e.storeFailure("set_occupancy", key, err)
	}
	if len(rows) == 0 {
		return models.Table{}, ErrNotFound
	}
	e.committed("set_occupancy", rows[0])
	return rows[0], nil
}

func (e *Engine) committed(op string, t models.Table) {
	utils.InfoLogger.WithFields(logrus.Fields{
		"op":        op,
		"table_key": t.ID,
		"occupied":  t.Occupied,
	}).Info("table updated")
	if e.notify != nil {
		e.notify.Emit()
	}
}

func (e *Engine) storeFailure(op string, key uint, err error) error {
	utils.ErrorLogger.WithFields(logrus.Fields{
		"op":        op,
		"table_key": key,
	}).WithError(err).Error("table store call failed")

	var se *StoreError
	if errors.As(err, &se) {
		return se
	}
	return &StoreError{Op: op, Err: err}
}
