package models

// BikeInfo is either a Snapshot captured at check-in or a LiveReference to a
// bicycle that must be looked up on the owning client.
type BikeInfo interface {
	bikeInfo()
}

// Snapshot is a denormalised copy of the bicycle attributes.
type Snapshot struct {
	Modelo string `json:"modelo"`
	Marca  string `json:"marca"`
	Cor    string `json:"cor"`
}

// LiveReference points at a bicycle by id.
type LiveReference struct {
	BikeID string
}

func (Snapshot) bikeInfo()      {}
func (LiveReference) bikeInfo() {}

// SnapshotOf copies the attributes of b.
func SnapshotOf(b Bicycle) *Snapshot {
	return &Snapshot{Modelo: b.Modelo, Marca: b.Marca, Cor: b.Cor}
}

// ResolveBike turns info into concrete attributes. Live references are looked
// up on owner; anything unresolvable becomes NotAvailable.
func ResolveBike(info BikeInfo, owner *Client) Snapshot {
	switch v := info.(type) {
	case Snapshot:
		return v
	case LiveReference:
		if b, ok := owner.FindBicycle(v.BikeID); ok {
			return *SnapshotOf(*b)
		}
	}
	return Snapshot{Modelo: NotAvailable, Marca: NotAvailable, Cor: NotAvailable}
}
