package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/valet/internal/apperr"
	"github.com/starford/valet/internal/format"
	"github.com/starford/valet/internal/models"
)

// ClientInput carries the editable client fields. CPF and Telefone may be masked.
type ClientInput struct {
	Nome       string         `json:"nome"`
	CPF        string         `json:"cpf"`
	Telefone   string         `json:"telefone"`
	Bicicletas []BicycleInput `json:"bicicletas,omitempty"`
}

// BicycleInput carries the editable bicycle fields.
type BicycleInput struct {
	Modelo string `json:"modelo"`
	Marca  string `json:"marca"`
	Cor    string `json:"cor"`
}

func (in *ClientInput) normalize() {
	in.Nome = strings.TrimSpace(in.Nome)
	in.CPF = format.Digits(in.CPF)
	in.Telefone = format.Digits(in.Telefone)
}

// Validate checks required fields and the CPF check digits.
func (in ClientInput) Validate() error {
	if in.CPF != "" && !format.ValidateCPF(in.CPF) {
		return fmt.Errorf("cpf %s: %w", in.CPF, apperr.ErrInvalidCPF)
	}
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Nome, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.CPF, validation.Required, format.CPFRule),
		validation.Field(&in.Telefone, validation.Length(0, 11)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// Validate checks that the bicycle has a model.
func (in BicycleInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Modelo, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

func (in BicycleInput) bicycle(id string) models.Bicycle {
	return models.Bicycle{
		ID:     id,
		Modelo: strings.TrimSpace(in.Modelo),
		Marca:  strings.TrimSpace(in.Marca),
		Cor:    strings.TrimSpace(in.Cor),
	}
}

// ListClients returns every client ordered by name.
func (s *Service) ListClients(ctx context.Context) ([]models.Client, error) {
	clients, err := s.db.LoadClients(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(clients), nil
}

// GetClient returns one client with its bicycles.
func (s *Service) GetClient(ctx context.Context, id string) (*models.Client, error) {
	return s.db.GetClient(ctx, id)
}

// CreateClient validates and stores a new client.
func (s *Service) CreateClient(ctx context.Context, in ClientInput) (*models.Client, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c := models.Client{
		ID:         models.NewID(),
		Nome:       in.Nome,
		CPF:        in.CPF,
		Telefone:   in.Telefone,
		Bicicletas: make([]models.Bicycle, 0, len(in.Bicicletas)),
	}
	for _, b := range in.Bicicletas {
		if err := b.Validate(); err != nil {
			return nil, err
		}
		c.Bicicletas = append(c.Bicicletas, b.bicycle(models.NewID()))
	}

	if _, err := s.db.ClientByCPF(ctx, c.CPF); err == nil {
		return nil, fmt.Errorf("cpf %s: %w", format.FormatCPF(c.CPF), apperr.ErrAlreadyExists)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if err := s.db.CreateClient(ctx, c); err != nil {
		return nil, err
	}
	s.notify(EventClientCreated, c)
	return &c, nil
}

// UpdateClient changes nome, CPF and telefone of an existing client.
func (s *Service) UpdateClient(ctx context.Context, id string, in ClientInput) (*models.Client, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := s.db.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if other, err := s.db.ClientByCPF(ctx, in.CPF); err == nil && other.ID != id {
		return nil, fmt.Errorf("cpf %s: %w", format.FormatCPF(in.CPF), apperr.ErrAlreadyExists)
	}
	c.Nome, c.CPF, c.Telefone = in.Nome, in.CPF, in.Telefone
	if err := s.db.UpdateClient(ctx, *c); err != nil {
		return nil, err
	}
	s.notify(EventClientUpdated, c)
	return c, nil
}

// DeleteClient removes a client and its bicycles. Past registros are kept
// and keep showing the bicycle through their snapshot.
func (s *Service) DeleteClient(ctx context.Context, id string) error {
	if err := s.db.DeleteClient(ctx, id); err != nil {
		return err
	}
	s.notify(EventClientDeleted, map[string]string{"id": id})
	return nil
}

// AddBicycle registers a new bicycle for the client.
func (s *Service) AddBicycle(ctx context.Context, clientID string, in BicycleInput) (*models.Bicycle, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	b := in.bicycle(models.NewID())
	if err := s.db.AddBicycle(ctx, clientID, b); err != nil {
		return nil, err
	}
	s.clientChanged(ctx, clientID)
	return &b, nil
}

// UpdateBicycle edits one of the client's bicycles. Registros created before
// the edit keep the attributes captured at check-in.
func (s *Service) UpdateBicycle(ctx context.Context, clientID, bikeID string, in BicycleInput) (*models.Bicycle, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	b := in.bicycle(bikeID)
	if err := s.db.UpdateBicycle(ctx, clientID, b); err != nil {
		return nil, err
	}
	s.clientChanged(ctx, clientID)
	return &b, nil
}

// RemoveBicycle deletes one of the client's bicycles.
func (s *Service) RemoveBicycle(ctx context.Context, clientID, bikeID string) error {
	if err := s.db.DeleteBicycle(ctx, clientID, bikeID); err != nil {
		return err
	}
	s.clientChanged(ctx, clientID)
	return nil
}

func (s *Service) clientChanged(ctx context.Context, id string) {
	if c, err := s.db.GetClient(ctx, id); err == nil {
		s.notify(EventClientUpdated, c)
	}
}

// Search matches the query against the client name (case-insensitive) and,
// when it contains digits, against the CPF and telefone digits.
func (s *Service) Search(ctx context.Context, query string) ([]models.Client, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []models.Client{}, nil
	}
	digits := format.Digits(q)

	clients, err := s.db.LoadClients(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Client{}
	for _, c := range clients {
		if strings.Contains(strings.ToLower(c.Nome), q) ||
			(digits != "" && (strings.Contains(c.CPF, digits) || strings.Contains(c.Telefone, digits))) {
			out = append(out, c)
		}
	}
	return out, nil
}
