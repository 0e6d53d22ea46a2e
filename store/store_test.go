package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeanCaOLO/crossdoking/config"
	"github.com/JeanCaOLO/crossdoking/domain"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db, err := Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: dbPath},
	})
	require.NoError(t, err, "open test db")
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seed creates a manifest, one pallet with a single SKU and one demand line
// per destination.
func seed(t *testing.T, db *DB, pallet, sku, available string, demand map[string]string) (*Manifest, []*DemandLine) {
	t.Helper()
	m := &Manifest{FileName: "test.xlsx", Status: domain.ManifestInProgress, CreatedBy: "admin"}
	var lines []*DemandLine
	err := db.WithTx(context.Background(), func(tx *Tx) error {
		if err := tx.CreateManifest(m); err != nil {
			return err
		}
		if _, err := tx.EnsurePallet(pallet, "A-01"); err != nil {
			return err
		}
		if err := tx.AddInventory(pallet, sku, "widget", dec(available)); err != nil {
			return err
		}
		for dest, qty := range demand {
			l := &DemandLine{ManifestID: m.ID, PalletCode: pallet, SKU: sku, Barcode: "779" + sku,
				Destination: dest, QtyTotal: dec(available), QtyToSend: dec(qty)}
			if err := tx.InsertDemandLine(l); err != nil {
				return err
			}
			lines = append(lines, l)
		}
		return nil
	})
	require.NoError(t, err)
	return m, lines
}

// --- Pallet lock tests ---

func TestTryLockPallet(t *testing.T) {
	db := testDB(t)
	seed(t, db, "P1", "A1", "10", nil)

	ok, err := db.TryLockPallet("P1", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	// same holder re-acquires
	ok, err = db.TryLockPallet("P1", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.TryLockPallet("P1", "bob")
	require.NoError(t, err)
	assert.False(t, ok, "second operator must not steal the lock")

	p, err := db.GetPallet("P1")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.LockedBy)
	assert.NotNil(t, p.LockedAt)

	ok, err = db.TryLockPallet("NOPE", "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryLockBlockedPallet(t *testing.T) {
	db := testDB(t)
	seed(t, db, "P1", "A1", "10", nil)
	require.NoError(t, db.SetPalletStatus("P1", domain.PalletBlocked))

	ok, err := db.TryLockPallet("P1", "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnlockPallet(t *testing.T) {
	db := testDB(t)
	seed(t, db, "P1", "A1", "10", nil)
	_, err := db.TryLockPallet("P1", "alice")
	require.NoError(t, err)

	ok, err := db.UnlockPallet("P1", "bob", false)
	require.NoError(t, err)
	assert.False(t, ok, "non-holder cannot release")

	ok, err = db.UnlockPallet("P1", "bob", true)
	require.NoError(t, err)
	assert.True(t, ok, "forced release clears any holder")

	p, err := db.GetPallet("P1")
	require.NoError(t, err)
	assert.Empty(t, p.LockedBy)
	assert.Nil(t, p.LockedAt)
}

// --- Inventory tests ---

func TestInventoryGuards(t *testing.T) {
	db := testDB(t)
	seed(t, db, "P1", "A1", "100", nil)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		ok, err := tx.TakeInventory("P1", "A1", dec("40"))
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = tx.TakeInventory("P1", "A1", dec("61"))
		require.NoError(t, err)
		assert.False(t, ok, "cannot take more than available")
		ok, err = tx.ReturnInventory("P1", "A1", dec("41"))
		require.NoError(t, err)
		assert.False(t, ok, "cannot exceed qty_initial")
		return nil
	})
	require.NoError(t, err)

	inv, err := db.GetInventory("P1", "A1")
	require.NoError(t, err)
	assert.True(t, inv.QtyAvailable.Equal(dec("60")), "available = %s", inv.QtyAvailable)
	assert.True(t, inv.QtyInitial.Equal(dec("100")))
}

func TestFractionalInventory(t *testing.T) {
	db := testDB(t)
	seed(t, db, "P1", "KG", "10.5", nil)
	err := db.WithTx(context.Background(), func(tx *Tx) error {
		_, err := tx.TakeInventory("P1", "KG", dec("0.25"))
		return err
	})
	require.NoError(t, err)
	total, err := db.PalletAvailable("P1")
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("10.25")), "total = %s", total)
}

func TestFractionalRemainderDepletesExactly(t *testing.T) {
	db := testDB(t)
	seed(t, db, "P1", "KG", "0.3", nil)
	ctx := context.Background()

	for _, qty := range []string{"0.1", "0.2"} {
		require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
			ok, err := tx.TakeInventory("P1", "KG", dec(qty))
			require.True(t, ok, "take %s", qty)
			return err
		}))
	}
	inv, err := db.GetInventory("P1", "KG")
	require.NoError(t, err)
	assert.Equal(t, 0, inv.QtyAvailable.Sign(), "available = %s", inv.QtyAvailable)

	require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
		status, err := tx.RefreshPalletDepletion("P1")
		assert.Equal(t, domain.PalletDepleted, status)
		return err
	}))

	// returning both parts restores the initial quantity exactly
	require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
		for _, qty := range []string{"0.2", "0.1"} {
			ok, err := tx.ReturnInventory("P1", "KG", dec(qty))
			if err != nil {
				return err
			}
			require.True(t, ok, "return %s", qty)
		}
		return nil
	}))
	inv, err = db.GetInventory("P1", "KG")
	require.NoError(t, err)
	assert.True(t, inv.QtyAvailable.Equal(dec("0.3")), "available = %s", inv.QtyAvailable)
	assert.True(t, inv.QtyAvailable.Equal(inv.QtyInitial))

	require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
		ok, err := tx.ReturnInventory("P1", "KG", dec("0.0001"))
		assert.False(t, ok, "cannot return past the initial quantity")
		return err
	}))
}

func TestFractionalDemandCompletes(t *testing.T) {
	db := testDB(t)
	_, lines := seed(t, db, "P1", "KG", "1", map[string]string{"S1": "0.3"})
	id := lines[0].ID
	ctx := context.Background()

	for _, qty := range []string{"0.1", "0.2"} {
		require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
			l, err := tx.GetDemandLine(id)
			if err != nil {
				return err
			}
			return tx.SetDemandConfirmed(l, l.QtyConfirmed.Add(dec(qty)), "alice")
		}))
	}
	l, err := db.GetDemandLine(id)
	require.NoError(t, err)
	assert.True(t, l.QtyConfirmed.Equal(dec("0.3")), "confirmed = %s", l.QtyConfirmed)
	assert.Equal(t, domain.DemandDone, l.Status)
	assert.True(t, l.Pending().IsZero())
}

func TestSetDemandConfirmedRejectsStaleRead(t *testing.T) {
	db := testDB(t)
	_, lines := seed(t, db, "P1", "A1", "100", map[string]string{"S1": "40"})
	stale := lines[0]
	ctx := context.Background()

	require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
		return tx.SetDemandConfirmed(stale, dec("10"), "alice")
	}))
	err := db.WithTx(ctx, func(tx *Tx) error {
		return tx.SetDemandConfirmed(stale, dec("20"), "bob")
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	l, err := db.GetDemandLine(stale.ID)
	require.NoError(t, err)
	assert.True(t, l.QtyConfirmed.Equal(dec("10")))
}

func TestRefreshPalletDepletion(t *testing.T) {
	db := testDB(t)
	seed(t, db, "P1", "A1", "5", nil)
	ctx := context.Background()

	require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.TakeInventory("P1", "A1", dec("5")); err != nil {
			return err
		}
		status, err := tx.RefreshPalletDepletion("P1")
		assert.Equal(t, domain.PalletDepleted, status)
		return err
	}))
	require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ReturnInventory("P1", "A1", dec("1")); err != nil {
			return err
		}
		status, err := tx.RefreshPalletDepletion("P1")
		assert.Equal(t, domain.PalletOpen, status)
		return err
	}))
}

// --- Demand tests ---

func TestDemandOrderingAndBarcode(t *testing.T) {
	db := testDB(t)
	seed(t, db, "P1", "A1", "100", map[string]string{"S2": "60", "S1": "40", "S3": "10"})

	lines, err := db.ListOpenDemand("P1", "A1")
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "S1", lines[0].Destination)
	assert.Equal(t, "S2", lines[1].Destination)
	assert.Equal(t, "S3", lines[2].Destination)
	assert.Equal(t, domain.DemandPending, lines[0].Status)

	sku, err := db.FindSKUByBarcode("P1", "779A1")
	require.NoError(t, err)
	assert.Equal(t, "A1", sku)

	_, err = db.FindSKUByBarcode("P2", "779A1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSetDemandConfirmedCompletionMetadata(t *testing.T) {
	db := testDB(t)
	_, lines := seed(t, db, "P1", "A1", "100", map[string]string{"S1": "40"})
	id := lines[0].ID
	ctx := context.Background()

	set := func(qty string) *DemandLine {
		require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
			l, err := tx.GetDemandLine(id)
			if err != nil {
				return err
			}
			return tx.SetDemandConfirmed(l, dec(qty), "alice")
		}))
		l, err := db.GetDemandLine(id)
		require.NoError(t, err)
		return l
	}

	l := set("10")
	assert.Equal(t, domain.DemandPartial, l.Status)
	assert.Nil(t, l.DoneAt)

	l = set("40")
	assert.Equal(t, domain.DemandDone, l.Status)
	assert.NotNil(t, l.DoneAt)
	assert.Equal(t, "alice", l.DoneBy)

	l = set("0")
	assert.Equal(t, domain.DemandPending, l.Status)
	assert.Nil(t, l.DoneAt)
	assert.Empty(t, l.DoneBy)
}

func TestDemandCheckConstraint(t *testing.T) {
	db := testDB(t)
	_, lines := seed(t, db, "P1", "A1", "100", map[string]string{"S1": "40"})
	err := db.WithTx(context.Background(), func(tx *Tx) error {
		return tx.SetDemandConfirmed(lines[0], dec("41"), "alice")
	})
	assert.Error(t, err, "confirmed above to_send violates the check constraint")
}

// --- Container tests ---

func TestOneOpenContainerPerDestination(t *testing.T) {
	db := testDB(t)
	m, _ := seed(t, db, "P1", "A1", "100", nil)
	ctx := context.Background()

	require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertContainer(&Container{Code: "22O00000001", ManifestID: m.ID, Destination: "S1",
			Status: domain.ContainerOpen, Type: domain.ContainerNormal})
	}))

	err := db.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertContainer(&Container{Code: "22O00000002", ManifestID: m.ID, Destination: "S1",
			Status: domain.ContainerOpen, Type: domain.ContainerNormal})
	})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err), "partial index must reject a second OPEN container: %v", err)

	err = db.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertContainer(&Container{Code: "22O00000001", ManifestID: m.ID, Destination: "S2",
			Status: domain.ContainerOpen, Type: domain.ContainerNormal})
	})
	assert.True(t, IsUniqueViolation(err), "codes are unique")

	// a surplus container for the same pair is allowed
	require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertContainer(&Container{Code: "SOB00000001", ManifestID: m.ID, Destination: "S1",
			Status: domain.ContainerClosed, Type: domain.ContainerSurplus, CreatedBy: "alice"})
	}))
	c, err := db.GetContainerByCode("SOB00000001")
	require.NoError(t, err)
	assert.NotNil(t, c.ClosedAt)
	assert.Equal(t, "alice", c.ClosedBy)
}

func TestLastContainerCodeIgnoresMalformed(t *testing.T) {
	db := testDB(t)
	m, _ := seed(t, db, "P1", "A1", "100", nil)
	ctx := context.Background()

	require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
		for i, code := range []string{"22O00000007", "22OZZZZZZZZ", "22O000000099", "22O9", "22O0000001A"} {
			c := &Container{Code: code, ManifestID: m.ID, Destination: fmt.Sprintf("S%d", i),
				Status: domain.ContainerClosed, Type: domain.ContainerNormal}
			if err := tx.InsertContainer(c); err != nil {
				return err
			}
		}
		last, err := tx.LastContainerCode("22O", 8)
		require.NoError(t, err)
		assert.Equal(t, "22O00000007", last)

		last, err = tx.LastContainerCode("SOB", 8)
		require.NoError(t, err)
		assert.Empty(t, last)
		return nil
	}))
}

func TestContainerLifecycle(t *testing.T) {
	db := testDB(t)
	m, lines := seed(t, db, "P1", "A1", "100", map[string]string{"S1": "40"})
	ctx := context.Background()

	var c *Container
	require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
		last, err := tx.LastContainerCode("22O", 8)
		require.NoError(t, err)
		assert.Empty(t, last)

		c = &Container{Code: "22O00000007", ManifestID: m.ID, Destination: "S1", Status: domain.ContainerOpen, Type: domain.ContainerNormal}
		if err := tx.InsertContainer(c); err != nil {
			return err
		}
		found, err := tx.FindOpenContainer(m.ID, "S1")
		require.NoError(t, err)
		assert.Equal(t, c.ID, found.ID)

		last, err = tx.LastContainerCode("22O", 8)
		require.NoError(t, err)
		assert.Equal(t, "22O00000007", last)

		return tx.InsertContainerLine(&ContainerLine{ContainerID: c.ID, PalletCode: "P1", SKU: "A1",
			Qty: dec("5"), DemandLineID: &lines[0].ID, CreatedBy: "alice"})
	}))

	n, err := db.CountContainerLines(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
		ok, err := tx.MarkContainerDispatched(c.ID)
		assert.False(t, ok, "OPEN cannot be dispatched")
		if err != nil {
			return err
		}
		ok, err = tx.CloseContainer(c.ID, "alice")
		assert.True(t, ok)
		if err != nil {
			return err
		}
		ok, err = tx.CloseContainer(c.ID, "alice")
		assert.False(t, ok, "already closed")
		if err != nil {
			return err
		}
		ok, err = tx.MarkContainerDispatched(c.ID)
		assert.True(t, ok)
		return err
	}))

	got, err := db.GetContainer(c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContainerDispatched, got.Status)
	assert.NotNil(t, got.DispatchedAt)

	list, err := db.ListContainers(m.ID, domain.ContainerDispatched)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	cl, err := db.ListContainerLines(c.ID)
	require.NoError(t, err)
	require.Len(t, cl, 1)
	require.NotNil(t, cl[0].DemandLineID)
	assert.Equal(t, lines[0].ID, *cl[0].DemandLineID)
}

// --- Manifest tests ---

func TestManifestStatusFollowsDemand(t *testing.T) {
	db := testDB(t)
	m, lines := seed(t, db, "P1", "A1", "100", map[string]string{"S1": "40"})
	ctx := context.Background()

	require.NoError(t, db.WithTx(ctx, func(tx *Tx) error {
		if err := tx.SetDemandConfirmed(lines[0], dec("40"), "alice"); err != nil {
			return err
		}
		return tx.RefreshManifestStatus(m.ID)
	}))
	got, err := db.GetManifest(m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ManifestDone, got.Status)

	p, err := db.GetManifestProgress(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.DoneLines)
	assert.Equal(t, 0, p.PendingLines)
}

// --- Audit and outbox tests ---

func TestAuditAppendAndList(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.AppendAudit(&AuditEvent{Type: domain.EventScanPallet, PalletCode: "P1", Actor: "alice", RawCode: "P1"}))
	require.NoError(t, db.AppendAudit(&AuditEvent{Type: domain.EventConfirmQty, PalletCode: "P1", SKU: "A1",
		Destination: "S1", Qty: decimal.NewNullDecimal(dec("4")), Actor: "alice"}))
	require.NoError(t, db.AppendAudit(&AuditEvent{Type: domain.EventScanPallet, PalletCode: "P2", Actor: "bob"}))

	events, err := db.ListPalletAudit("P1", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventConfirmQty, events[0].Type)
	assert.True(t, events[0].Qty.Valid)
	assert.True(t, events[0].Qty.Decimal.Equal(dec("4")))
	assert.False(t, events[1].Qty.Valid)

	n, err := db.CountAudit()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestOutboxLifecycle(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.EnqueueOutbox("topic.a", []byte(`{"a":1}`), "container.closed"))
	require.NoError(t, db.EnqueueOutbox("topic.a", []byte(`{"a":2}`), "container.closed"))

	msgs, err := db.ListPendingOutbox(10, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "container.closed", msgs[0].MsgType)

	require.NoError(t, db.AckOutbox(msgs[0].ID))
	for i := 0; i < 3; i++ {
		require.NoError(t, db.IncrementOutboxRetries(msgs[1].ID))
	}

	msgs, err = db.ListPendingOutbox(10, 3)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	dead, err := db.CountDeadOutbox(3)
	require.NoError(t, err)
	assert.Equal(t, 1, dead)
}

func TestOutboxRolledBackWithTx(t *testing.T) {
	db := testDB(t)
	err := db.WithTx(context.Background(), func(tx *Tx) error {
		if err := tx.EnqueueOutbox("topic.a", []byte("x"), "t"); err != nil {
			return err
		}
		return sql.ErrTxDone
	})
	assert.ErrorIs(t, err, sql.ErrTxDone)
	msgs, err := db.ListPendingOutbox(10, 3)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestOperators(t *testing.T) {
	db := testDB(t)
	exists, err := db.OperatorExists()
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, db.CreateOperator("alice", "hash", domain.RoleOperator))
	u, err := db.GetOperator("alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOperator, u.Role)

	require.NoError(t, db.UpdateOperatorPassword("alice", "hash2"))
	u, err = db.GetOperator("alice")
	require.NoError(t, err)
	assert.Equal(t, "hash2", u.PasswordHash)

	_, err = db.GetOperator("nobody")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a=$1 AND b=$2", Rebind("SELECT * FROM t WHERE a=? AND b=?"))
	db := &DB{driver: "postgres"}
	assert.Equal(t, "UPDATE t SET at=NOW() WHERE id=$1", db.Q("UPDATE t SET at=datetime('now','localtime') WHERE id=?"))
}
