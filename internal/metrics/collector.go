package metrics

import (
	"context"
	"encoding/json"
	"runtime"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/contracte/internal/archive"
)

var bucketMetrics = []byte("metrics")

// BusyProvider reports running jobs. worker.Pool satisfies it.
type BusyProvider interface {
	Busy() int
}

// ArchiveStatsProvider reports archive size. archive.Storage satisfies it.
type ArchiveStatsProvider interface {
	Stats(ctx context.Context) (*archive.Stats, error)
}

// ShadowCounters stores counter values for persistence
type ShadowCounters struct {
	Renders     map[string]float64 `json:"renders"`
	Transitions map[string]float64 `json:"transitions"`
}

// Collector keeps counters across restarts and refreshes gauges
type Collector struct {
	db            *bolt.DB
	metrics       *Metrics
	pool          BusyProvider
	archive       ArchiveStatsProvider
	flushInterval time.Duration
	startTime     time.Time

	shadow ShadowCounters
	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCollector creates a collector. db may be nil, then counters start from
// zero on every run.
func NewCollector(db *bolt.DB, m *Metrics, pool BusyProvider, store ArchiveStatsProvider, flushInterval time.Duration) (*Collector, error) {
	if flushInterval == 0 {
		flushInterval = 10 * time.Second
	}

	if db != nil {
		err := db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketMetrics)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	c := &Collector{
		db:            db,
		metrics:       m,
		pool:          pool,
		archive:       store,
		flushInterval: flushInterval,
		startTime:     time.Now(),
		shadow: ShadowCounters{
			Renders:     make(map[string]float64),
			Transitions: make(map[string]float64),
		},
		stopCh: make(chan struct{}),
	}

	if err := c.loadCounters(); err != nil {
		return nil, err
	}
	return c, nil
}

// Start begins the collector background tasks
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(2)
	go c.persistLoop(ctx)
	go c.updateLoop(ctx)
}

// Stop stops the collector and persists final values
func (c *Collector) Stop() error {
	close(c.stopCh)
	c.wg.Wait()
	return c.persistCounters()
}

func (c *Collector) loadCounters() error {
	if c.db == nil {
		return nil
	}

	return c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketMetrics).Get([]byte("counters"))
		if data == nil {
			return nil
		}

		var shadow ShadowCounters
		if err := json.Unmarshal(data, &shadow); err != nil {
			return nil // Skip invalid data
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		for k, v := range shadow.Renders {
			c.shadow.Renders[k] = v
			c.metrics.RendersTotal.WithLabelValues(k).Add(v)
		}
		for k, v := range shadow.Transitions {
			c.shadow.Transitions[k] = v
			c.metrics.ContractTransitionsTotal.WithLabelValues(k).Add(v)
		}
		return nil
	})
}

func (c *Collector) persistCounters() error {
	if c.db == nil {
		return nil
	}

	c.mu.Lock()
	data, err := json.Marshal(c.shadow)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMetrics).Put([]byte("counters"), data)
	})
}

func (c *Collector) persistLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.persistCounters()
		}
	}
}

func (c *Collector) updateLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

// collect refreshes the gauges
func (c *Collector) collect(ctx context.Context) {
	c.metrics.UptimeSeconds.Set(time.Since(c.startTime).Seconds())
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	if c.pool != nil {
		c.metrics.RenderWorkersBusy.Set(float64(c.pool.Busy()))
	}
	if c.archive != nil {
		if stats, err := c.archive.Stats(ctx); err == nil {
			c.metrics.ArchiveDocuments.Set(float64(stats.Documents))
			c.metrics.ArchiveBytes.Set(float64(stats.Bytes))
		}
	}
}

// ObserveRender records a render and updates the shadow counter. It
// satisfies render.Observer.
func (c *Collector) ObserveRender(d time.Duration, pages int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.mu.Lock()
	c.shadow.Renders[result]++
	c.mu.Unlock()
	c.metrics.ObserveRender(d, pages, err)
}

// TrackTransition counts a contract reaching status
func (c *Collector) TrackTransition(status string) {
	c.mu.Lock()
	c.shadow.Transitions[status]++
	c.mu.Unlock()
	c.metrics.ContractTransitionsTotal.WithLabelValues(status).Inc()
}
