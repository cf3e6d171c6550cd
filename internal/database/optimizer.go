package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lodyland/pkg/logger"
)

// Optimizer runs periodic SQLite maintenance
type Optimizer struct {
	db     *DB
	config *OptimizerConfig
	logger *logger.ColoredLogger

	runningMux sync.Mutex
	running    bool
	stopChan   chan struct{}

	statsMux sync.Mutex
	stats    OptimizationStats
}

// OptimizerConfig holds optimizer configuration
type OptimizerConfig struct {
	AutoOptimize     bool
	OptimizeInterval time.Duration

	AutoWALCheckpoint     bool
	WALCheckpointInterval time.Duration
	WALSizeThreshold      int64 // bytes

	// Full optimizations only run inside the window (UTC hours, may wrap midnight)
	MaintenanceStartHour int
	MaintenanceEndHour   int
}

// OptimizationStats tracks maintenance runs and connection usage
type OptimizationStats struct {
	StartTime          time.Time     `json:"start_time"`
	TotalOptimizations int64         `json:"total_optimizations"`
	OptimizationErrors int64         `json:"optimization_errors"`
	LastOptimize       time.Time     `json:"last_optimize"`
	OptimizeDuration   time.Duration `json:"optimize_duration"`
	WALCheckpointCount int64         `json:"wal_checkpoint_count"`
	LastWALCheckpoint  time.Time     `json:"last_wal_checkpoint"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
}

// DefaultOptimizerConfig returns default optimizer configuration
func DefaultOptimizerConfig() *OptimizerConfig {
	return &OptimizerConfig{
		AutoOptimize:          true,
		OptimizeInterval:      1 * time.Hour,
		AutoWALCheckpoint:     true,
		WALCheckpointInterval: 15 * time.Minute,
		WALSizeThreshold:      50 * 1024 * 1024,
		MaintenanceStartHour:  2,
		MaintenanceEndHour:    6,
	}
}

// NewOptimizer creates a new database optimizer
func NewOptimizer(db *DB, config *OptimizerConfig) *Optimizer {
	return &Optimizer{
		db:       db,
		config:   config,
		logger:   logger.NewComponentLogger("OPTIMIZER", logger.ColorBrightYellow),
		stats:    OptimizationStats{StartTime: time.Now()},
		stopChan: make(chan struct{}),
	}
}

// Start begins automatic optimization
func (o *Optimizer) Start() {
	o.runningMux.Lock()
	defer o.runningMux.Unlock()
	if o.running {
		return
	}
	o.running = true
	o.logger.Info("Starting database optimizer")

	if o.config.AutoOptimize {
		go o.loop(o.config.OptimizeInterval, func() {
			if !o.inMaintenanceWindow(time.Now().UTC()) {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if err := o.OptimizeNow(ctx); err != nil {
				o.logger.Error("Automatic optimization failed: %v", err)
			}
		})
	}
	if o.config.AutoWALCheckpoint {
		go o.loop(o.config.WALCheckpointInterval, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if !o.walNeedsCheckpoint(ctx) {
				return
			}
			if err := o.walCheckpoint(ctx); err != nil {
				o.logger.Error("WAL checkpoint failed: %v", err)
			}
		})
	}
}

// Stop stops automatic optimization
func (o *Optimizer) Stop() {
	o.runningMux.Lock()
	defer o.runningMux.Unlock()
	if !o.running {
		return
	}
	o.running = false
	close(o.stopChan)
	o.logger.Info("Database optimizer stopped")
}

// OptimizeNow runs PRAGMA optimize, ANALYZE and a WAL checkpoint
func (o *Optimizer) OptimizeNow(ctx context.Context) error {
	start := time.Now()
	var errs []error
	for _, stmt := range []string{"PRAGMA optimize", "ANALYZE"} {
		if _, err := o.db.ExecContext(ctx, stmt); err != nil {
			errs = append(errs, fmt.Errorf("%s failed: %w", stmt, err))
		}
	}
	if err := o.walCheckpoint(ctx); err != nil {
		errs = append(errs, err)
	}

	o.statsMux.Lock()
	o.stats.TotalOptimizations++
	o.stats.LastOptimize = time.Now()
	o.stats.OptimizeDuration = time.Since(start)
	if len(errs) > 0 {
		o.stats.OptimizationErrors++
	}
	o.statsMux.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("optimization completed with errors: %w", errors.Join(errs...))
	}
	o.logger.Info("Database optimization completed in %v", time.Since(start))
	return nil
}

// GetStats returns a copy of the maintenance and connection pool stats
func (o *Optimizer) GetStats() OptimizationStats {
	o.statsMux.Lock()
	stats := o.stats
	o.statsMux.Unlock()

	pool := o.db.Stats()
	stats.OpenConnections = pool.OpenConnections
	stats.InUse = pool.InUse
	stats.WaitCount = pool.WaitCount
	stats.WaitDuration = pool.WaitDuration
	return stats
}

func (o *Optimizer) loop(interval time.Duration, run func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			run()
		case <-o.stopChan:
			return
		}
	}
}

func (o *Optimizer) inMaintenanceWindow(now time.Time) bool {
	start, end, hour := o.config.MaintenanceStartHour, o.config.MaintenanceEndHour, now.Hour()
	if start == end {
		return true
	}
	if start < end {
		return hour >= start && hour < end
	}
	// overnight window
	return hour >= start || hour < end
}

func (o *Optimizer) walNeedsCheckpoint(ctx context.Context) bool {
	sizes, err := o.db.GetDatabaseSize(ctx)
	if err != nil {
		return true
	}
	return sizes["wal_size"] > o.config.WALSizeThreshold
}

func (o *Optimizer) walCheckpoint(ctx context.Context) error {
	start := time.Now()
	if _, err := o.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal checkpoint failed: %w", err)
	}
	o.statsMux.Lock()
	o.stats.WALCheckpointCount++
	o.stats.LastWALCheckpoint = time.Now()
	o.statsMux.Unlock()

	o.logger.Debug("WAL checkpoint completed in %v", time.Since(start))
	return nil
}
