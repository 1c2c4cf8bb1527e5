package metrics

import (
	"time"

	"github.com/veeringman/KeyCortex/pkg/challenge"
	"github.com/veeringman/KeyCortex/pkg/keystore"
)

// Collector periodically gauges store-derived metrics
type Collector struct {
	store      keystore.Store
	challenges *challenge.Store
	stopCh     chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store keystore.Store, challenges *challenge.Store) *Collector {
	return &Collector{
		store:      store,
		challenges: challenges,
		stopCh:     make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectWalletMetrics()
	c.collectBindingMetrics()
	c.collectChallengeMetrics()
}

func (c *Collector) collectWalletMetrics() {
	count, err := c.store.CountWallets()
	if err != nil {
		return
	}
	WalletsTotal.Set(float64(count))
}

func (c *Collector) collectBindingMetrics() {
	count, err := c.store.CountBindings()
	if err != nil {
		return
	}
	BindingsTotal.Set(float64(count))
}

func (c *Collector) collectChallengeMetrics() {
	if c.challenges == nil {
		return
	}
	ChallengesActive.Set(float64(c.challenges.Len()))
}
