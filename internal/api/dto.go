package api

import (
	"github.com/starford/valet/internal/models"
	"github.com/starford/valet/internal/registry"
	"github.com/starford/valet/internal/store"
	"github.com/starford/valet/internal/transfer"
)

// ClientRequest is the body of client create and update calls.
type ClientRequest = registry.ClientInput

// BicycleRequest is the body of bicycle create and update calls.
type BicycleRequest = registry.BicycleInput

// ClientListResponse wraps client listings and search results.
type ClientListResponse struct {
	Clients []models.Client `json:"clients" validate:"required"`
	Total   int             `json:"total" example:"42" validate:"required"`
}

// CheckInRequest opens a registro.
type CheckInRequest struct {
	ClientID string `json:"clientId" example:"8c1e..." validate:"required"`
	BikeID   string `json:"bikeId" example:"4f2a..." validate:"required"`
}

// CheckOutRequest closes a registro.
type CheckOutRequest struct {
	AccessRemoved bool `json:"accessRemoved" example:"false"`
}

// RecordListResponse wraps registros joined with client and bicycle.
type RecordListResponse struct {
	Date    string            `json:"date,omitempty" example:"2024-01-05"`
	Records []transfer.Record `json:"records" validate:"required"`
}

// ToggleResponse reports the new state of a history node.
type ToggleResponse struct {
	Key      string `json:"key" example:"2024-01" validate:"required"`
	Expanded bool   `json:"expanded"`
}

// ImportResponse is returned after an uploaded file is imported.
type ImportResponse = registry.ImportOutcome

// ImportListResponse wraps the import log.
type ImportListResponse struct {
	Imports []store.ImportRecord `json:"imports" validate:"required"`
}
