package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventPalletLocked EventType = iota + 1
	EventPalletReleased
	EventPalletStatusChanged
	EventQuantityConfirmed
	EventLineReversed
	EventContainerClosed
	EventContainerDispatched
	EventSurplusReported
	EventDestinationChanged
	EventManifestImported
	EventMessagingConnected
	EventMessagingDisconnected
)

var eventNames = map[EventType]string{
	EventPalletLocked:          "pallet-locked",
	EventPalletReleased:        "pallet-released",
	EventPalletStatusChanged:   "pallet-status",
	EventQuantityConfirmed:     "quantity-confirmed",
	EventLineReversed:          "line-reversed",
	EventContainerClosed:       "container-closed",
	EventContainerDispatched:   "container-dispatched",
	EventSurplusReported:       "surplus-reported",
	EventDestinationChanged:    "destination-changed",
	EventManifestImported:      "manifest-imported",
	EventMessagingConnected:    "messaging-connected",
	EventMessagingDisconnected: "messaging-disconnected",
}

// String is the SSE event name.
func (t EventType) String() string {
	if n, ok := eventNames[t]; ok {
		return n
	}
	return "unknown"
}

// --- Event payloads ---

type PalletEvent struct {
	PalletCode string `json:"pallet_code"`
	Actor      string `json:"actor"`
	Status     string `json:"status,omitempty"`
	Forced     bool   `json:"forced,omitempty"`
}

type QuantityConfirmedEvent struct {
	PalletCode      string          `json:"pallet_code"`
	SKU             string          `json:"sku"`
	Destination     string          `json:"destination"`
	Qty             decimal.Decimal `json:"qty"`
	ContainerCode   string          `json:"container_code"`
	LineStatus      string          `json:"line_status"`
	PalletAvailable decimal.Decimal `json:"pallet_available"`
	Actor           string          `json:"actor"`
}

type LineReversedEvent struct {
	ContainerLineID int64           `json:"container_line_id"`
	ContainerCode   string          `json:"container_code"`
	PalletCode      string          `json:"pallet_code"`
	SKU             string          `json:"sku"`
	Qty             decimal.Decimal `json:"qty"`
	Actor           string          `json:"actor"`
}

type ContainerEvent struct {
	ContainerID int64     `json:"container_id"`
	Code        string    `json:"code"`
	Destination string    `json:"destination"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	LineCount   int       `json:"line_count,omitempty"`
	Actor       string    `json:"actor,omitempty"`
	At          time.Time `json:"at"`
}

type SurplusReportedEvent struct {
	PalletCode    string `json:"pallet_code"`
	ContainerCode string `json:"container_code"`
	LineCount     int    `json:"line_count"`
	Skipped       int    `json:"skipped"`
	Actor         string `json:"actor"`
}

type DestinationChangedEvent struct {
	PalletCode string `json:"pallet_code"`
	SKU        string `json:"sku"`
	Operator   string `json:"operator"`
	From       string `json:"from"`
	To         string `json:"to"`
}

type ManifestImportedEvent struct {
	ManifestID int64  `json:"manifest_id"`
	FileName   string `json:"file_name"`
	Lines      int    `json:"lines"`
	Pallets    int    `json:"pallets"`
	Actor      string `json:"actor"`
}

type ConnectionEvent struct {
	Detail string `json:"detail"`
}
