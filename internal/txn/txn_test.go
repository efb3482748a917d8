package txn_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exstack/internal/txn"
)

func TestTxGetPutRoundTrip(t *testing.T) {
	store := txn.NewStore[int]()
	tx := store.Begin()
	tx.Put("a", 1)

	v, err := tx.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// Not visible outside the Tx until commit.
	_, ok := store.Peek("a")
	assert.False(t, ok)
}

func TestUnitOfWorkCommitsAllParticipants(t *testing.T) {
	orders := txn.NewStore[string]()
	clients := txn.NewStore[int]()

	uow := txn.NewUnitOfWork()
	otx := txn.Join(uow, orders.Begin())
	ctx := txn.Join(uow, clients.Begin())

	otx.Put("o1", "open")
	ctx.Put("c1", 100)

	require.NoError(t, uow.Commit())

	v, ok := orders.Peek("o1")
	require.True(t, ok)
	assert.Equal(t, "open", v)

	b, ok := clients.Peek("c1")
	require.True(t, ok)
	assert.Equal(t, 100, b)
}

func TestCommitFailsOnConflictAndLeavesStoreUntouched(t *testing.T) {
	store := txn.NewStore[int]()

	// Seed a record.
	seed := store.Begin()
	seed.Put("x", 1)
	uow := txn.NewUnitOfWork()
	txn.Join(uow, seed)
	require.NoError(t, uow.Commit())

	// Two concurrent Tx's both read "x" at version 1.
	txA := store.Begin()
	txB := store.Begin()
	_, err := txA.Get("x")
	require.NoError(t, err)
	_, err = txB.Get("x")
	require.NoError(t, err)

	txA.Put("x", 2)
	txB.Put("x", 3)

	uowA := txn.NewUnitOfWork()
	txn.Join(uowA, txA)
	require.NoError(t, uowA.Commit())

	uowB := txn.NewUnitOfWork()
	txn.Join(uowB, txB)
	err = uowB.Commit()
	require.Error(t, err)
	assert.True(t, errors.Is(err, txn.ErrConflict))

	v, ok := store.Peek("x")
	require.True(t, ok)
	assert.Equal(t, 2, v, "loser's write must not apply")
}

func TestInvariantRejectsBadWrite(t *testing.T) {
	store := txn.NewStore[int]()
	store.SetInvariant(func(v int) error {
		if v < 0 {
			return txn.ErrInvariant
		}
		return nil
	})

	tx := store.Begin()
	tx.Put("bal", -1)

	uow := txn.NewUnitOfWork()
	txn.Join(uow, tx)
	err := uow.Commit()
	require.Error(t, err)
	assert.True(t, errors.Is(err, txn.ErrInvariant))

	_, ok := store.Peek("bal")
	assert.False(t, ok)
}

func TestMultiParticipantConflictRollsBackAll(t *testing.T) {
	orders := txn.NewStore[string]()
	clients := txn.NewStore[int]()

	// Seed both.
	seedUow := txn.NewUnitOfWork()
	otx := txn.Join(seedUow, orders.Begin())
	ctx := txn.Join(seedUow, clients.Begin())
	otx.Put("o1", "open")
	ctx.Put("c1", 100)
	require.NoError(t, seedUow.Commit())

	// Our joint commit reads the order at version 1.
	uow := txn.NewUnitOfWork()
	otx2 := orders.Begin()
	_, err := otx2.Get("o1") // observes version 1
	require.NoError(t, err)
	txn.Join(uow, otx2)

	// Racer commits a conflicting order write first, bumping it to 2.
	racer := txn.NewUnitOfWork()
	rtx := txn.Join(racer, orders.Begin())
	_, err = rtx.Get("o1")
	require.NoError(t, err)
	rtx.Put("o1", "closed")
	require.NoError(t, racer.Commit())

	// Our order read is now stale while the client version is fresh; the
	// commit must fail as a whole, leaving the client write undone.
	ctx2 := clients.Begin()
	ctx2.Put("c1", 999)
	txn.Join(uow, ctx2)

	err = uow.Commit()
	require.Error(t, err)
	assert.True(t, errors.Is(err, txn.ErrConflict))

	v, _ := clients.Peek("c1")
	assert.Equal(t, 100, v, "client write must not have applied when order tx conflicted")
}
