package monitoring

import (
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/isdelr/taskflow-be/internal/models"
)

// Publisher receives each fresh sample.
type Publisher interface {
	Publish(event string, payload interface{})
	OnlineCount() int
}

// StatUpdater periodically samples host CPU and memory and broadcasts the result.
type StatUpdater struct {
	hub      Publisher
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once

	mu     sync.RWMutex
	latest *models.SystemStats

	cpuPercent func() (float64, error)
	memory     func() (*mem.VirtualMemoryStat, error)
	now        func() time.Time
}

// NewStatUpdater creates a new StatUpdater. A zero interval disables periodic sampling.
func NewStatUpdater(hub Publisher, interval time.Duration) *StatUpdater {
	return &StatUpdater{
		hub:        hub,
		interval:   interval,
		done:       make(chan struct{}),
		cpuPercent: sampleCPU,
		memory:     mem.VirtualMemory,
		now:        time.Now,
	}
}

// Run starts the periodic updates and blocks until Stop.
func (su *StatUpdater) Run() {
	if su.interval <= 0 {
		log.Info().Msg("System stat updater disabled")
		return
	}
	log.Info().Dur("interval", su.interval).Msg("Starting background stat updater...")
	ticker := time.NewTicker(su.interval)
	defer ticker.Stop()

	// Run once immediately on start
	su.update()

	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-ticker.C:
			su.update()
		}
	}
}

// Stop halts the periodic updates. It is safe to call more than once.
func (su *StatUpdater) Stop() {
	su.stopOnce.Do(func() { close(su.done) })
}

// Latest returns the most recent sample, taking one if none exists yet.
func (su *StatUpdater) Latest() models.SystemStats {
	su.mu.RLock()
	latest := su.latest
	su.mu.RUnlock()
	if latest != nil {
		return *latest
	}
	return su.sample()
}

func (su *StatUpdater) update() {
	stats := su.sample()
	su.mu.Lock()
	su.latest = &stats
	su.mu.Unlock()
	su.hub.Publish(models.EventSystemStats, stats)
}

// sample never fails; unavailable readings are reported as zero.
func (su *StatUpdater) sample() models.SystemStats {
	stats := models.SystemStats{
		Goroutines:  runtime.NumGoroutine(),
		OnlineUsers: su.hub.OnlineCount(),
		SampledAt:   models.FormatTime(su.now()),
	}

	if pct, err := su.cpuPercent(); err != nil {
		log.Warn().Err(err).Msg("StatUpdater: Could not read CPU usage")
	} else {
		stats.CPUPercent = pct
	}

	if vm, err := su.memory(); err != nil {
		log.Warn().Err(err).Msg("StatUpdater: Could not read memory usage")
	} else {
		stats.MemUsedPercent = vm.UsedPercent
		stats.MemUsedBytes = vm.Used
		stats.MemTotalBytes = vm.Total
	}
	return stats
}

// sampleCPU returns overall CPU usage since the previous call.
func sampleCPU() (float64, error) {
	pcts, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(pcts) == 0 {
		return 0, nil
	}
	return pcts[0], nil
}
