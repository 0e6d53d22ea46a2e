package distribution

import "github.com/JeanCaOLO/crossdoking/store"

// Emitter is the interface adapters must satisfy to bridge distribution events to the engine.
// Events are emitted after the owning transaction commits.
type Emitter interface {
	EmitPalletLocked(palletCode, actor string)
	EmitPalletReleased(palletCode, actor string, forced bool)
	EmitPalletStatusChanged(palletCode, status, actor string)
	EmitQuantityConfirmed(r *ConfirmResult, actor string)
	EmitLineReversed(r *ReverseResult, actor string)
	EmitContainerClosed(c *store.Container, lineCount int, actor string)
	EmitContainerDispatched(c *store.Container)
	EmitSurplusReported(r *SurplusResult, actor string)
}

// Announcer writes outbound container lifecycle messages. It runs inside the
// transaction that changed the container so the message and the state change
// commit together.
type Announcer interface {
	AnnounceContainerClosed(tx *store.Tx, c *store.Container, lineCount int) error
	AnnounceContainerDispatched(tx *store.Tx, c *store.Container) error
}

type nopEmitter struct{}

func (nopEmitter) EmitPalletLocked(string, string)                   {}
func (nopEmitter) EmitPalletReleased(string, string, bool)           {}
func (nopEmitter) EmitPalletStatusChanged(string, string, string)    {}
func (nopEmitter) EmitQuantityConfirmed(*ConfirmResult, string)      {}
func (nopEmitter) EmitLineReversed(*ReverseResult, string)           {}
func (nopEmitter) EmitContainerClosed(*store.Container, int, string) {}
func (nopEmitter) EmitContainerDispatched(*store.Container)          {}
func (nopEmitter) EmitSurplusReported(*SurplusResult, string)        {}

type nopAnnouncer struct{}

func (nopAnnouncer) AnnounceContainerClosed(*store.Tx, *store.Container, int) error { return nil }
func (nopAnnouncer) AnnounceContainerDispatched(*store.Tx, *store.Container) error  { return nil }
