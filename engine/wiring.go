package engine

func (e *Engine) wireEventHandlers() {
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(QuantityConfirmedEvent)
		e.logFn("engine: %s confirmed %s x %s %s -> %s (%s, line %s)",
			ev.Actor, ev.Qty, ev.SKU, ev.PalletCode, ev.Destination, ev.ContainerCode, ev.LineStatus)
	}, EventQuantityConfirmed)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(DestinationChangedEvent)
		e.logFn("engine: %s on %s sku %s moved from %s to %s", ev.Operator, ev.PalletCode, ev.SKU, ev.From, ev.To)
	}, EventDestinationChanged)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ContainerEvent)
		e.logFn("engine: container %s %s (%s, %d lines)", ev.Code, ev.Status, ev.Destination, ev.LineCount)
	}, EventContainerClosed, EventContainerDispatched)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(PalletEvent)
		if evt.Type == EventPalletReleased && ev.Forced {
			e.logFn("engine: pallet %s force-released by %s", ev.PalletCode, ev.Actor)
		}
	}, EventPalletReleased)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SurplusReportedEvent)
		e.logFn("engine: surplus %s from %s (%d lines, %d skipped)", ev.ContainerCode, ev.PalletCode, ev.LineCount, ev.Skipped)
	}, EventSurplusReported)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConnectionEvent)
		e.logFn("engine: %s", ev.Detail)
	}, EventMessagingConnected, EventMessagingDisconnected)
}
