package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/6529-Collections/nftsales/internal/sales"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dispatcher spreads commands over the workers that answered the last
// ping. With no remote worker reachable it runs everything on the local one.
type Dispatcher struct {
	remote []Worker
	local  Worker

	mu   sync.Mutex
	live []Worker
}

func NewDispatcher(local Worker, remote ...Worker) *Dispatcher {
	return &Dispatcher{remote: remote, local: local}
}

const revivePingTimeout = 5 * time.Second

// Start pings every remote worker and keeps the ones that answered.
func (d *Dispatcher) Start(ctx context.Context) {
	var live []Worker
	for _, w := range d.remote {
		if err := w.Ping(ctx); err != nil {
			zap.L().Warn("Worker did not answer ping", zap.String("worker", w.ID()), zap.Error(err))
			continue
		}
		zap.L().Info("Worker is up", zap.String("worker", w.ID()))
		live = append(live, w)
	}
	if len(live) == 0 {
		zap.L().Info("No remote workers, running work locally", zap.String("worker", d.local.ID()))
		live = []Worker{d.local}
	}

	d.mu.Lock()
	d.live = live
	d.mu.Unlock()
}

func (d *Dispatcher) Workers() []Worker {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.live == nil {
		return []Worker{d.local}
	}
	return append([]Worker(nil), d.live...)
}

// revive pings the remote workers dropped since the last call and puts the
// ones that answer back in rotation, replacing the local fallback.
func (d *Dispatcher) revive(ctx context.Context) {
	d.mu.Lock()
	var dropped []Worker
	for _, w := range d.remote {
		if !containsWorker(d.live, w) {
			dropped = append(dropped, w)
		}
	}
	d.mu.Unlock()
	if len(dropped) == 0 {
		return
	}

	var back []Worker
	for _, w := range dropped {
		pctx, cancel := context.WithTimeout(ctx, revivePingTimeout)
		err := w.Ping(pctx)
		cancel()
		if err != nil {
			continue
		}
		zap.L().Info("Worker is back", zap.String("worker", w.ID()))
		back = append(back, w)
	}
	if len(back) == 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	live := make([]Worker, 0, len(d.live)+len(back))
	for _, w := range d.live {
		if w != d.local {
			live = append(live, w)
		}
	}
	for _, w := range back {
		if !containsWorker(live, w) {
			live = append(live, w)
		}
	}
	d.live = live
}

func containsWorker(workers []Worker, w Worker) bool {
	for _, candidate := range workers {
		if candidate == w {
			return true
		}
	}
	return false
}

// Run executes the commands concurrently, one worker each, and returns the
// results in command order. A command whose worker turns out unreachable is
// moved to another worker, and to the local one once no remote is left.
// ErrNoWorkersAvailable is returned only when the local worker fails as
// well. Command failures are returned as they are.
func (d *Dispatcher) Run(ctx context.Context, cmds []Command) ([]Result, error) {
	results := make([]Result, len(cmds))
	g, gctx := errgroup.WithContext(ctx)
	for i, cmd := range cmds {
		g.Go(func() error {
			res, err := d.runOne(gctx, i, cmd)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *Dispatcher) runOne(ctx context.Context, slot int, cmd Command) (Result, error) {
	for {
		w, ok := d.pick(slot)
		if !ok {
			return nil, ErrNoWorkersAvailable
		}
		res, err := w.Execute(ctx, cmd)
		var unavailable *WorkerUnavailableError
		if errors.As(err, &unavailable) {
			zap.L().Warn("Worker failed, resubmitting its share",
				zap.String("worker", w.ID()),
				zap.Int("slot", slot),
				zap.Error(err))
			d.drop(w)
			continue
		}
		return res, err
	}
}

func (d *Dispatcher) pick(slot int) (Worker, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.live == nil {
		d.live = []Worker{d.local}
	}
	if len(d.live) == 0 {
		return nil, false
	}
	return d.live[slot%len(d.live)], true
}

func (d *Dispatcher) drop(w Worker) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, candidate := range d.live {
		if candidate == w {
			d.live = append(d.live[:i:i], d.live[i+1:]...)
			break
		}
	}
	if len(d.live) == 0 && w != d.local {
		zap.L().Info("No remote workers left, running work locally", zap.String("worker", d.local.ID()))
		d.live = []Worker{d.local}
	}
}

// DispatchReceipts partitions events by transaction hash, one share per live
// worker, so every event of a transaction lands on the same worker.
// Dropped remote workers are pinged again first.
func (d *Dispatcher) DispatchReceipts(ctx context.Context, chain string, events []sales.ChainSaleEvent) ([]sales.TxReceipts, error) {
	if len(events) > 0 {
		d.revive(ctx)
	}
	shares := partitionByTx(events, len(d.Workers()))
	cmds := make([]Command, len(shares))
	for i, share := range shares {
		cmds[i] = FetchReceiptsCommand{Chain: chain, Events: share}
	}

	results, err := d.Run(ctx, cmds)
	if err != nil {
		return nil, err
	}
	out := make([]sales.TxReceipts, 0, len(results))
	for _, res := range results {
		fetched, ok := res.(FetchReceiptsResult)
		if !ok {
			return nil, fmt.Errorf("unexpected result %T for receipt fetch", res)
		}
		out = append(out, fetched.Receipts)
	}
	return out, nil
}

func partitionByTx(events []sales.ChainSaleEvent, n int) [][]sales.ChainSaleEvent {
	if len(events) == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	slot := make(map[common.Hash]int)
	shares := make([][]sales.ChainSaleEvent, n)
	for _, ev := range events {
		i, ok := slot[ev.Log.TxHash]
		if !ok {
			i = len(slot) % n
			slot[ev.Log.TxHash] = i
		}
		shares[i] = append(shares[i], ev)
	}

	nonEmpty := shares[:0]
	for _, s := range shares {
		if len(s) > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return nonEmpty
}
