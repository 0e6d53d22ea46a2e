package domain

import "github.com/shopspring/decimal"

// Pallet statuses.
const (
	PalletOpen     = "OPEN"
	PalletDepleted = "DEPLETED"
	PalletBlocked  = "BLOCKED"
)

// Demand line statuses.
const (
	DemandPending = "PENDING"
	DemandPartial = "PARTIAL"
	DemandDone    = "DONE"
)

// Container statuses and types.
const (
	ContainerOpen       = "OPEN"
	ContainerClosed     = "CLOSED"
	ContainerDispatched = "DISPATCHED"

	ContainerNormal  = "NORMAL"
	ContainerSurplus = "SURPLUS"

	// SurplusDestination is the destination recorded on surplus containers.
	SurplusDestination = "SOBRANTE"
)

// Manifest statuses.
const (
	ManifestDraft      = "DRAFT"
	ManifestInProgress = "IN_PROGRESS"
	ManifestDone       = "DONE"
)

// Audit event types.
const (
	EventScanPallet = "SCAN_PALLET"
	EventScanSKU    = "SCAN_SKU"
	EventConfirmQty = "CONFIRM_QTY"
	EventReverse    = "REVERSE"
	EventClose      = "CLOSE"
	EventUnlock     = "UNLOCK"
	EventAdjust     = "ADJUST"
	EventDispatch   = "DISPATCH"
	EventBlock      = "BLOCK"
)

// Operator roles.
const (
	RoleAdmin      = "ADMIN"
	RoleSupervisor = "SUPERVISOR"
	RoleOperator   = "OPERADOR"
	RoleAuditor    = "AUDITOR"
)

// ValidRole reports whether role is one of the known operator roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSupervisor, RoleOperator, RoleAuditor:
		return true
	}
	return false
}

// CanSupervise reports whether role may perform administrative pallet actions.
func CanSupervise(role string) bool {
	return role == RoleAdmin || role == RoleSupervisor
}

// DemandStatus is the status of a demand line as a function of its quantities.
func DemandStatus(confirmed, toSend decimal.Decimal) string {
	switch {
	case confirmed.Sign() <= 0:
		return DemandPending
	case confirmed.LessThan(toSend):
		return DemandPartial
	default:
		return DemandDone
	}
}

// Pending is the quantity still owed to a demand line, never negative.
func Pending(toSend, confirmed decimal.Decimal) decimal.Decimal {
	p := toSend.Sub(confirmed)
	if p.Sign() < 0 {
		return decimal.Zero
	}
	return p
}
