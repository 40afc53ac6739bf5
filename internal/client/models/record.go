package models

import "time"

// Record is the unit of storage: one production/financial/health/livestock
// entry. Ids are assigned by the local store and are unique within a single
// collection only.
type Record struct {
	ID int64 `json:"id"`

	// Collection is the source partition. It is populated on reads that span
	// collections (ids alone are ambiguous) and is not part of the payload.
	Collection Collection `json:"-"`

	// Date is the domain date of the event, formatted YYYY-MM-DD.
	// Lexicographic order equals chronological order.
	Date string `json:"date,omitempty"`

	Type      string  `json:"type,omitempty"`
	Category  string  `json:"category,omitempty"`
	Livestock string  `json:"livestock,omitempty"`
	Status    string  `json:"status,omitempty"`
	Breed     string  `json:"breed,omitempty"`
	Quantity  float64 `json:"quantity,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Notes     string  `json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Synced is true only while the remote store holds this exact version.
	Synced   bool       `json:"synced"`
	SyncedAt *time.Time `json:"syncedAt,omitempty"`
}

// ModifiedAt returns the timestamp used for conflict comparison:
// UpdatedAt when set, otherwise CreatedAt.
func (r *Record) ModifiedAt() time.Time {
	if !r.UpdatedAt.IsZero() {
		return r.UpdatedAt
	}
	return r.CreatedAt
}

// Patch is a partial update to a record. Nil fields are left untouched.
type Patch struct {
	Date      *string  `json:"date,omitempty"`
	Type      *string  `json:"type,omitempty"`
	Category  *string  `json:"category,omitempty"`
	Livestock *string  `json:"livestock,omitempty"`
	Status    *string  `json:"status,omitempty"`
	Breed     *string  `json:"breed,omitempty"`
	Quantity  *float64 `json:"quantity,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
}

// Apply merges the patch into r, field by field.
func (p *Patch) Apply(r *Record) {
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Livestock != nil {
		r.Livestock = *p.Livestock
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Breed != nil {
		r.Breed = *p.Breed
	}
	if p.Quantity != nil {
		r.Quantity = *p.Quantity
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
}

// Filter narrows GetAll results. Exact-match fields are ANDed; empty values
// match everything. StartDate/EndDate form an inclusive range on Date.
type Filter struct {
	Type      string
	Category  string
	Livestock string
	Status    string
	StartDate string
	EndDate   string
}

// IsZero reports whether the filter matches all records.
func (f Filter) IsZero() bool {
	return f == Filter{}
}
