package service

import (
	"github.com/rl1809/fulfillment/internal/eventbus"
)

// Subscribe wires the order fulfillment choreography onto bus.
func Subscribe(bus *eventbus.Bus, release *StockReleaseHandler, reconcile *ReconciliationHandler, sideEffects *SideEffectHandler) {
	eventbus.On(bus, release.Handle)
	eventbus.On(bus, reconcile.Handle)
	eventbus.On(bus, sideEffects.Handle)
}
