package protocol

// Message type constants.
const (
	// Station -> WMS (published on the containers topic)
	TypeContainerClosed      = "container.closed"
	TypeContainerDispatchAck = "container.dispatch.ack"

	// WMS -> Station (consumed from the dispatch topic)
	TypeContainerDispatched = "container.dispatched"
)

// Roles for Address.Role.
const (
	RoleStation = "station"
	RoleWMS     = "wms"
)

// Protocol version.
const Version = 1
