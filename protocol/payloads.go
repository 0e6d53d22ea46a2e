package protocol

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContainerLine is one SKU quantity packed into a container.
type ContainerLine struct {
	PalletCode string          `json:"pallet_code"`
	SKU        string          `json:"sku"`
	Qty        decimal.Decimal `json:"qty"`
}

// ContainerClosed announces a container that is ready to ship.
type ContainerClosed struct {
	Code        string          `json:"code"`
	ManifestID  int64           `json:"manifest_id"`
	Destination string          `json:"destination"`
	Type        string          `json:"type"`
	LineCount   int             `json:"line_count"`
	Lines       []ContainerLine `json:"lines,omitempty"`
	ClosedBy    string          `json:"closed_by"`
	ClosedAt    time.Time       `json:"closed_at"`
}

// ContainerDispatched is sent by the WMS once a container left on a truck.
type ContainerDispatched struct {
	Code         string `json:"code"`
	Truck        string `json:"truck,omitempty"`
	DispatchedBy string `json:"dispatched_by"`
}

// ContainerDispatchAck answers a ContainerDispatched.
type ContainerDispatchAck struct {
	Code      string `json:"code"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Error     string `json:"error,omitempty"`
}
