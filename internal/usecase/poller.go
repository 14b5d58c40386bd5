package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Poller periodically pulls confirmed upstream orders into the local store.
// It races with the webhook path; both upsert by id and the newer
// updated_at wins.
type Poller struct {
	Upstream UpstreamClient
	Orders   OrderRepo
	Importer *ImportService
	Statuses []string
	Interval time.Duration
	Log      *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// Run polls until ctx is done. A non-positive interval disables polling.
func (p *Poller) Run(ctx context.Context) {
	if p.Interval <= 0 {
		return
	}
	log := logger(p.Log)
	log.Info("upstream poller started", "interval", p.Interval, "statuses", p.Statuses)
	t := time.NewTicker(p.Interval)
	defer t.Stop()
	for {
		if n, err := p.Tick(ctx); err != nil {
			log.Warn("upstream poll failed", "error", err)
		} else if n > 0 {
			log.Info("upstream poll synced orders", "count", n)
		}
		select {
		case <-ctx.Done():
			log.Info("upstream poller stopped")
			return
		case <-t.C:
		}
	}
}

// Tick runs one poll and returns how many orders it wrote.
func (p *Poller) Tick(ctx context.Context) (int, error) {
	orders, err := p.Upstream.ListOrders(ctx, p.Statuses)
	if err != nil {
		return 0, err
	}
	log := logger(p.Log)
	n := 0
	for _, uo := range orders {
		id := NormalizeOrderID(uo.ID)
		if id == "" || p.wasSeen(id) {
			continue
		}
		local, ok, err := p.Orders.GetOrder(ctx, id)
		if err != nil {
			log.Warn("poll: local lookup failed", "order_id", id, "error", err)
			continue
		}
		if ok {
			remote, has := normalizeTimestamp(uo.UpdatedAt)
			if !has || !remote.After(local.UpdatedAt) {
				p.markSeen(id)
				continue
			}
		}
		if _, _, err := p.Importer.upsert(ctx, id, uo, "", !ok); err != nil {
			log.Warn("poll: upsert failed", "order_id", id, "error", err)
			continue
		}
		p.markSeen(id)
		n++
	}
	return n, nil
}

func (p *Poller) wasSeen(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.seen[id]
	return ok
}

func (p *Poller) markSeen(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen == nil {
		p.seen = make(map[string]struct{})
	}
	p.seen[id] = struct{}{}
}
