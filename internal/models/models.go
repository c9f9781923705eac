// Package models defines the domain types for the valet registry.
//
// JSON field names follow the documents written by the old browser storage
// so legacy exports decode without a translation layer.
package models

import (
	"strings"

	"github.com/google/uuid"
)

// NotAvailable is shown for bicycle attributes that can no longer be resolved.
const NotAvailable = "N/A"

// Client is a valet customer. CPF and Telefone hold digits only.
type Client struct {
	ID         string    `json:"id"`
	Nome       string    `json:"nome"`
	CPF        string    `json:"cpf"`
	Telefone   string    `json:"telefone"`
	Bicicletas []Bicycle `json:"bicicletas"`
}

// Bicycle belongs to exactly one client.
type Bicycle struct {
	ID     string `json:"id"`
	Modelo string `json:"modelo"`
	Marca  string `json:"marca"`
	Cor    string `json:"cor"`
}

// FindBicycle returns the client's bicycle with the given id.
func (c *Client) FindBicycle(id string) (*Bicycle, bool) {
	if c == nil || id == "" {
		return nil, false
	}
	for i := range c.Bicicletas {
		if c.Bicicletas[i].ID == id {
			return &c.Bicicletas[i], true
		}
	}
	return nil, false
}

// LogEntry ("registro") is one check-in/check-out cycle of a bicycle.
// Timestamps are kept as the text that was stored; see ParseTimestamp.
type LogEntry struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"clientId"`
	BikeID          string    `json:"bikeId,omitempty"`
	BikeSnapshot    *Snapshot `json:"bikeSnapshot,omitempty"`
	DataHoraEntrada string    `json:"dataHoraEntrada"`
	DataHoraSaida   string    `json:"dataHoraSaida,omitempty"`
	AccessRemoved   bool      `json:"accessRemoved"`
	Pernoite        bool      `json:"pernoite"`
}

// Open reports whether the bicycle is still parked.
func (e LogEntry) Open() bool {
	return strings.TrimSpace(e.DataHoraSaida) == ""
}

// Bike returns the bicycle reference carried by the entry. A snapshot always
// wins over the live reference.
func (e LogEntry) Bike() BikeInfo {
	if e.BikeSnapshot != nil {
		return *e.BikeSnapshot
	}
	return LiveReference{BikeID: e.BikeID}
}

// NewID returns a random identifier for clients, bicycles and log entries.
func NewID() string {
	return uuid.NewString()
}
