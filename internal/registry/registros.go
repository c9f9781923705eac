package registry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/starford/valet/internal/apperr"
	"github.com/starford/valet/internal/models"
	"github.com/starford/valet/internal/transfer"
)

// CheckIn opens a registro for the client's bicycle, capturing a snapshot of
// its attributes. A bicycle can only have one open registro.
func (s *Service) CheckIn(ctx context.Context, clientID, bikeID string) (*models.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.db.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	bike, ok := c.FindBicycle(bikeID)
	if !ok {
		return nil, fmt.Errorf("bicycle %s: %w", bikeID, apperr.ErrNotFound)
	}

	open, err := s.db.OpenRegistros(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range open {
		if e.BikeID == bikeID {
			return nil, fmt.Errorf("bicycle %s already parked: %w", bikeID, apperr.ErrConflict)
		}
	}

	e := models.LogEntry{
		ID:              models.NewID(),
		ClientID:        clientID,
		BikeID:          bikeID,
		BikeSnapshot:    models.SnapshotOf(*bike),
		DataHoraEntrada: models.FormatTimestamp(s.Now()),
	}
	if err := s.db.InsertRegistro(ctx, e); err != nil {
		return nil, err
	}
	s.notify(EventCheckIn, e)
	return &e, nil
}

// CheckOut closes a registro. The stay counts as pernoite when the exit
// falls on a later calendar day than the entry.
func (s *Service) CheckOut(ctx context.Context, registroID string, accessRemoved bool) (*models.LogEntry, error) {
	e, err := s.db.GetRegistro(ctx, registroID)
	if err != nil {
		return nil, err
	}
	if !e.Open() {
		return nil, fmt.Errorf("registro %s already closed: %w", registroID, apperr.ErrConflict)
	}

	now := s.Now()
	pernoite := e.Pernoite
	if entrada, ok := models.ParseTimestamp(e.DataHoraEntrada, s.loc); ok && dayBefore(entrada, now, s.loc) {
		pernoite = true
	}
	saida := models.FormatTimestamp(now)
	if err := s.db.CloseRegistro(ctx, registroID, saida, accessRemoved, pernoite); err != nil {
		return nil, err
	}
	e.DataHoraSaida, e.AccessRemoved, e.Pernoite = saida, accessRemoved, pernoite
	s.notify(EventCheckOut, e)
	return e, nil
}

// SweepOvernight flags every open registro that entered on an earlier day
// as pernoite and returns how many were flagged.
func (s *Service) SweepOvernight(ctx context.Context) (int, error) {
	open, err := s.db.OpenRegistros(ctx)
	if err != nil {
		return 0, err
	}
	now := s.Now()
	var ids []string
	for _, e := range open {
		if e.Pernoite {
			continue
		}
		if entrada, ok := models.ParseTimestamp(e.DataHoraEntrada, s.loc); ok && dayBefore(entrada, now, s.loc) {
			ids = append(ids, e.ID)
		}
	}
	n, err := s.db.MarkPernoite(ctx, ids)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func dayBefore(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, loc)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, loc)
	return ad.Before(bd)
}

// DailyRecords returns the registros that entered on day, newest first,
// joined with their client and bicycle.
func (s *Service) DailyRecords(ctx context.Context, day time.Time) ([]transfer.Record, error) {
	entries, err := s.db.LoadRegistros(ctx)
	if err != nil {
		return nil, err
	}
	clients, err := s.clientIndex(ctx)
	if err != nil {
		return nil, err
	}

	type dated struct {
		rec transfer.Record
		at  time.Time
	}
	var hits []dated
	for _, e := range entries {
		at, ok := models.ParseTimestamp(e.DataHoraEntrada, s.loc)
		if !ok || !models.SameDay(at, day, s.loc) {
			continue
		}
		owner := clients[e.ClientID]
		rec := transfer.Record{
			LogEntry:  e,
			Bicicleta: models.ResolveBike(e.Bike(), owner),
			Status:    transfer.Status(e),
		}
		if owner != nil {
			rec.ClientName, rec.ClientCPF = owner.Nome, owner.CPF
		} else {
			rec.ClientName = models.NotAvailable
		}
		hits = append(hits, dated{rec: rec, at: at})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].at.After(hits[j].at) })

	out := make([]transfer.Record, len(hits))
	for i, h := range hits {
		out[i] = h.rec
	}
	return out, nil
}

// ClientRecords returns the client's access history, newest first.
func (s *Service) ClientRecords(ctx context.Context, clientID string) (*transfer.Report, error) {
	c, err := s.db.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	entries, err := s.db.RegistrosByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	r := transfer.BuildReport(*c, entries, s.loc)
	return &r, nil
}

func (s *Service) clientIndex(ctx context.Context) (map[string]*models.Client, error) {
	clients, err := s.db.LoadClients(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.Client, len(clients))
	for i := range clients {
		out[clients[i].ID] = &clients[i]
	}
	return out, nil
}
