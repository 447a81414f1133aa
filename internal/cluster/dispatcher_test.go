package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/6529-Collections/nftsales/internal/sales"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unavailableWorker(id string) *fakeWorker {
	return &fakeWorker{id: id, exec: func(ctx context.Context, cmd Command) (Result, error) {
		return nil, &WorkerUnavailableError{WorkerID: id, Err: errors.New("connection refused")}
	}}
}

func receiptHashes(batches []sales.TxReceipts) map[common.Hash]bool {
	out := map[common.Hash]bool{}
	for _, b := range batches {
		for h := range b {
			out[h] = true
		}
	}
	return out
}

func TestDispatcher_FallsBackToLocalWorker(t *testing.T) {
	local := echoWorker("local")
	remote := echoWorker("remote")
	remote.pingErr = errors.New("down")

	d := NewDispatcher(local, remote)
	d.Start(context.Background())

	require.Len(t, d.Workers(), 1)
	assert.Equal(t, "local", d.Workers()[0].ID())

	txA, txB := common.HexToHash("0xaa"), common.HexToHash("0xbb")
	got, err := d.DispatchReceipts(context.Background(), "ethereum", eventsFor(t, txA, txB))
	require.NoError(t, err)
	assert.Equal(t, map[common.Hash]bool{txA: true, txB: true}, receiptHashes(got))
	assert.Equal(t, 1, local.callCount())
	assert.Zero(t, remote.callCount())
}

func TestDispatcher_UnstartedUsesLocal(t *testing.T) {
	local := echoWorker("local")
	d := NewDispatcher(local)

	_, err := d.DispatchReceipts(context.Background(), "ethereum", eventsFor(t, common.HexToHash("0xaa")))
	require.NoError(t, err)
	assert.Equal(t, 1, local.callCount())
}

func TestDispatcher_SpreadsOverRemoteWorkers(t *testing.T) {
	local := echoWorker("local")
	w1, w2 := echoWorker("w1"), echoWorker("w2")
	d := NewDispatcher(local, w1, w2)
	d.Start(context.Background())
	require.Len(t, d.Workers(), 2)

	txs := []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02"), common.HexToHash("0x03"), common.HexToHash("0x04")}
	got, err := d.DispatchReceipts(context.Background(), "ethereum", eventsFor(t, txs...))
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Len(t, receiptHashes(got), 4)
	assert.Equal(t, 1, w1.callCount())
	assert.Equal(t, 1, w2.callCount())
	assert.Zero(t, local.callCount())
}

func TestDispatcher_ResubmitsWorkOfFailedWorker(t *testing.T) {
	local := echoWorker("local")
	healthy := echoWorker("healthy")
	failing := unavailableWorker("failing")
	d := NewDispatcher(local, healthy, failing)
	d.Start(context.Background())

	txs := []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02"), common.HexToHash("0x03")}
	got, err := d.DispatchReceipts(context.Background(), "ethereum", eventsFor(t, txs...))
	require.NoError(t, err)
	assert.Len(t, receiptHashes(got), 3)
	assert.Equal(t, 1, failing.callCount())
	assert.Equal(t, 2, healthy.callCount())

	require.Len(t, d.Workers(), 1)
	assert.Equal(t, "healthy", d.Workers()[0].ID())
}

func TestDispatcher_RemotesFailOverToLocal(t *testing.T) {
	local := echoWorker("local")
	d := NewDispatcher(local, unavailableWorker("a"), unavailableWorker("b"))
	d.Start(context.Background())

	txs := []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")}
	got, err := d.DispatchReceipts(context.Background(), "ethereum", eventsFor(t, txs...))
	require.NoError(t, err)
	assert.Len(t, receiptHashes(got), 2)
	assert.Equal(t, 2, local.callCount())

	require.Len(t, d.Workers(), 1)
	assert.Equal(t, "local", d.Workers()[0].ID())
}

func TestDispatcher_NoWorkersLeft(t *testing.T) {
	d := NewDispatcher(unavailableWorker("local"), unavailableWorker("a"))
	d.Start(context.Background())

	_, err := d.DispatchReceipts(context.Background(), "ethereum", eventsFor(t, common.HexToHash("0x01"), common.HexToHash("0x02")))
	assert.ErrorIs(t, err, ErrNoWorkersAvailable)
}

func TestDispatcher_RemoteRecoversAfterTransientFailure(t *testing.T) {
	local := echoWorker("local")
	remote := echoWorker("remote")
	answer := remote.exec
	remote.exec = func(ctx context.Context, cmd Command) (Result, error) {
		if remote.callCount() == 1 {
			return nil, &WorkerUnavailableError{WorkerID: "remote", Err: errors.New("503 Service Unavailable")}
		}
		return answer(ctx, cmd)
	}
	d := NewDispatcher(local, remote)
	d.Start(context.Background())

	tx := common.HexToHash("0x01")
	got, err := d.DispatchReceipts(context.Background(), "ethereum", eventsFor(t, tx))
	require.NoError(t, err)
	assert.True(t, receiptHashes(got)[tx])
	assert.Equal(t, 1, local.callCount())
	assert.Equal(t, "local", d.Workers()[0].ID())

	for i := 0; i < 3; i++ {
		got, err = d.DispatchReceipts(context.Background(), "ethereum", eventsFor(t, tx))
		require.NoError(t, err)
		assert.True(t, receiptHashes(got)[tx])
	}
	assert.Equal(t, 4, remote.callCount())
	assert.Equal(t, 1, local.callCount())
	require.Len(t, d.Workers(), 1)
	assert.Equal(t, "remote", d.Workers()[0].ID())
}

func TestDispatcher_DownRemoteStaysOutUntilItAnswers(t *testing.T) {
	local := echoWorker("local")
	remote := unavailableWorker("remote")
	d := NewDispatcher(local, remote)
	d.Start(context.Background())

	remote.pingErr = errors.New("connection refused")
	for i := 0; i < 3; i++ {
		_, err := d.DispatchReceipts(context.Background(), "ethereum", eventsFor(t, common.HexToHash("0x01")))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, remote.callCount())
	assert.Equal(t, 3, local.callCount())
}

func TestDispatcher_CommandErrorIsNotResubmitted(t *testing.T) {
	boom := errors.New("receipt retrieval failed")
	failing := &fakeWorker{id: "remote", exec: func(ctx context.Context, cmd Command) (Result, error) {
		return nil, boom
	}}
	d := NewDispatcher(echoWorker("local"), failing)
	d.Start(context.Background())

	_, err := d.DispatchReceipts(context.Background(), "ethereum", eventsFor(t, common.HexToHash("0x01")))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, failing.callCount())
	assert.Len(t, d.Workers(), 1)
}

func TestDispatcher_EmptyEvents(t *testing.T) {
	local := echoWorker("local")
	d := NewDispatcher(local)

	got, err := d.DispatchReceipts(context.Background(), "ethereum", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, local.callCount())
}

func TestPartitionByTx_KeepsTransactionTogether(t *testing.T) {
	txA, txB, txC := common.HexToHash("0xaa"), common.HexToHash("0xbb"), common.HexToHash("0xcc")
	events := eventsFor(t, txA, txB, txA, txC, txA)

	shares := partitionByTx(events, 2)
	require.Len(t, shares, 2)

	owner := map[common.Hash]int{}
	total := 0
	for i, share := range shares {
		for _, ev := range share {
			total++
			if prev, ok := owner[ev.Log.TxHash]; ok {
				assert.Equal(t, prev, i, "tx %s split across shares", ev.Log.TxHash.Hex())
			}
			owner[ev.Log.TxHash] = i
		}
	}
	assert.Equal(t, len(events), total)
	assert.Len(t, shares[0], 4)
}

func TestPartitionByTx_MoreWorkersThanTransactions(t *testing.T) {
	shares := partitionByTx(eventsFor(t, common.HexToHash("0xaa")), 4)
	require.Len(t, shares, 1)
	assert.Len(t, shares[0], 1)
}
