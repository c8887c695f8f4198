// Package documents holds the business document collections: projects,
// quotations, purchase orders and parties. Collections are flat record sets;
// relations are plain reference-number strings joined at read time.
package documents

import "time"

// Party classification.
const (
	PartySupplier = "supplier"
	PartyCustomer = "customer"
)

// Document statuses shared across collections.
const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Project is the top-level document the others link to.
type Project struct {
	RefNo        string    `json:"ref_no"`
	Name         string    `json:"name"`
	CustomerName string    `json:"customer_name"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p Project) Key() string { return p.RefNo }

// Quotation links to a project through ProjectRefNo.
type Quotation struct {
	RefNo        string    `json:"ref_no"`
	ProjectRefNo string    `json:"project_ref_no"`
	PartyName    string    `json:"party_name"`
	Amount       float64   `json:"amount"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (q Quotation) Key() string { return q.RefNo }

// PurchaseOrder links to a project through ProjectRefNo.
type PurchaseOrder struct {
	RefNo        string    `json:"ref_no"`
	ProjectRefNo string    `json:"project_ref_no"`
	SupplierName string    `json:"supplier_name"`
	Amount       float64   `json:"amount"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (o PurchaseOrder) Key() string { return o.RefNo }

// Party is a supplier or customer record referenced by name.
type Party struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p Party) Key() string { return p.Name }

// LinkedData is the read-time join for one project: every quotation and
// purchase order whose project reference matches.
type LinkedData struct {
	Project        Project         `json:"project"`
	Quotations     []Quotation     `json:"quotations"`
	PurchaseOrders []PurchaseOrder `json:"purchase_orders"`
}
