package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/yeremiapane/mesas-live/models"
	"github.com/yeremiapane/mesas-live/utils"
)

const KindTablesUpdated = "tables-updated"

// Envelope adalah pesan yang dikirim ke viewer setelah setiap mutasi
type Envelope struct {
	Kind   string         `json:"kind"`
	Tables []models.Table `json:"tables"`
}

func NewTablesUpdated(tables []models.Table) Envelope {
	if tables == nil {
		tables = []models.Table{}
	}
	return Envelope{Kind: KindTablesUpdated, Tables: tables}
}

// TableLister reads the authoritative table list, ordered by id.
type TableLister interface {
	ListTables(ctx context.Context) ([]models.Table, error)
}

// Publisher delivers an envelope somewhere: the websocket hub, a broker.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// ChangeNotifier re-reads the table list after a committed mutation and
// pushes it to every publisher.
type ChangeNotifier struct {
	Lister     TableLister
	Publishers []Publisher
	// Timeout bounds one background publish, zero means none.
	Timeout time.Duration

	inflight conc.WaitGroup
}

func NewChangeNotifier(lister TableLister, publishers ...Publisher) *ChangeNotifier {
	return &ChangeNotifier{
		Lister:     lister,
		Publishers: publishers,
	}
}

// PublishCurrentState reads the list once and hands the same envelope to
// each publisher. A failing publisher does not stop the others.
func (n *ChangeNotifier) PublishCurrentState(ctx context.Context) error {
	tables, err := n.Lister.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("read tables for broadcast: %w", err)
	}

	env := NewTablesUpdated(tables)
	var errs []error
	for _, p := range n.Publishers {
		if err := p.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit schedules PublishCurrentState and returns immediately. Failures are
// logged only; the mutation that triggered the emit has already committed.
func (n *ChangeNotifier) Emit() {
	n.inflight.Go(func() {
		ctx := context.Background()
		if n.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, n.Timeout)
			defer cancel()
		}

		if err := n.PublishCurrentState(ctx); err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{"kind": KindTablesUpdated}).WithError(err).Error("broadcast failed")
		}
	})
}

// Wait blocks until every emitted publish has finished.
func (n *ChangeNotifier) Wait() {
	n.inflight.Wait()
}
