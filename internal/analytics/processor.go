// Package analytics runs the background log-processing pipeline: it
// batches incoming search queries, folds them into the index's usage
// counts, and flags queries whose recent volume is trending upward.
// It calls through to service.AutocompleteService's term-based surface
// (AddTerm/BumpTerm) rather than operating on suggestion records directly.
package analytics

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/riftword/autocomplete/internal/metrics"
	"github.com/riftword/autocomplete/internal/service"
	"github.com/riftword/autocomplete/pkg/models"
)

// Processor batches search logs and periodically folds their
// frequencies into the autocomplete index.
type Processor struct {
	service       *service.AutocompleteService
	logger        *logrus.Logger
	logQueue      chan models.SearchLog
	freqUpdates   map[string]int64
	freqMutex     sync.RWMutex
	batchSize     int
	flushInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
	metrics       *metrics.Metrics
}

// Config holds processor configuration.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
}

// NewProcessor creates a new log processor over svc.
func NewProcessor(svc *service.AutocompleteService, config Config, logger *logrus.Logger, metricsInstance *metrics.Metrics) *Processor {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 30 * time.Second
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 10000
	}

	return &Processor{
		service:       svc,
		logger:        logger,
		logQueue:      make(chan models.SearchLog, config.QueueSize),
		freqUpdates:   make(map[string]int64),
		batchSize:     config.BatchSize,
		flushInterval: config.FlushInterval,
		stopChan:      make(chan struct{}),
		metrics:       metricsInstance,
	}
}

// Start begins processing search logs in background goroutines.
func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("starting analytics processor")

	p.wg.Add(1)
	go p.processLogs(ctx)

	p.wg.Add(1)
	go p.updateFrequencies(ctx)

	p.wg.Add(1)
	go p.detectTrending(ctx)
}

// Stop gracefully shuts down the processor.
func (p *Processor) Stop() {
	p.logger.Info("stopping analytics processor")
	close(p.stopChan)
	p.wg.Wait()
	p.logger.Info("analytics processor stopped")
}

// LogQuery adds a search query to the processing queue.
func (p *Processor) LogQuery(log models.SearchLog) error {
	select {
	case p.logQueue <- log:
		p.metrics.UpdatePipelineQueueSize(len(p.logQueue))
		return nil
	default:
		p.logger.Warn("log queue is full, dropping log")
		p.metrics.RecordError("analytics", "queue_full")
		return fmt.Errorf("log queue is full")
	}
}

func (p *Processor) processLogs(ctx context.Context) {
	defer p.wg.Done()

	logs := make([]models.SearchLog, 0, p.batchSize)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.processBatch(logs)
			return
		case <-p.stopChan:
			p.processBatch(logs)
			return
		case log := <-p.logQueue:
			logs = append(logs, log)
			if len(logs) >= p.batchSize {
				p.processBatch(logs)
				logs = logs[:0]
			}
		case <-ticker.C:
			if len(logs) > 0 {
				p.processBatch(logs)
				logs = logs[:0]
			}
		}
	}
}

func (p *Processor) processBatch(logs []models.SearchLog) {
	if len(logs) == 0 {
		return
	}

	start := time.Now()
	p.logger.WithField("count", len(logs)).Debug("processing log batch")

	queryFreq := make(map[string]int64)
	for _, log := range logs {
		query := normalizeQuery(log.Query)
		if query != "" {
			queryFreq[query]++
		}
	}

	p.freqMutex.Lock()
	for query, count := range queryFreq {
		p.freqUpdates[query] += count
	}
	p.freqMutex.Unlock()

	p.extractNewTerms(queryFreq)

	p.metrics.RecordPipelineProcessed("batch")
	p.metrics.RecordPipelineLatency("batch", time.Since(start))
	p.metrics.UpdatePipelineQueueSize(len(p.logQueue))
}

func (p *Processor) updateFrequencies(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.flushInterval * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.flushFrequencyUpdates()
			return
		case <-p.stopChan:
			p.flushFrequencyUpdates()
			return
		case <-ticker.C:
			p.flushFrequencyUpdates()
		}
	}
}

func (p *Processor) flushFrequencyUpdates() {
	start := time.Now()

	p.freqMutex.Lock()
	updates := make(map[string]int64)
	for query, count := range p.freqUpdates {
		updates[query] = count
	}
	p.freqUpdates = make(map[string]int64)
	p.freqMutex.Unlock()

	if len(updates) == 0 {
		return
	}

	p.logger.WithField("count", len(updates)).Debug("flushing frequency updates")

	for query, count := range updates {
		if err := p.service.BumpTerm(query, count); err != nil {
			p.logger.WithError(err).WithField("term", query).Warn("failed to bump term frequency")
		}
	}

	p.metrics.RecordPipelineProcessed("frequency_flush")
	p.metrics.RecordPipelineLatency("frequency_flush", time.Since(start))
}

// extractNewTerms registers queries that look like usable terms
// (neither too short nor absurdly long) with the index so that a
// never-before-inserted query can still surface as a future
// suggestion. The full observed frequency is folded in later by
// flushFrequencyUpdates; this only guarantees the term exists.
func (p *Processor) extractNewTerms(queryFreq map[string]int64) {
	for query := range queryFreq {
		if len(query) < 2 || len(query) > 50 {
			continue
		}
		if err := p.service.AddTerm(query); err != nil {
			p.logger.WithError(err).WithField("term", query).Warn("failed to register term")
		}
	}
}

func (p *Processor) detectTrending(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	recentQueries := make(map[string][]time.Time)
	var mutex sync.RWMutex

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.analyzeTrends(recentQueries, &mutex)
		}
	}
}

func (p *Processor) analyzeTrends(recentQueries map[string][]time.Time, mutex *sync.RWMutex) {
	mutex.Lock()
	defer mutex.Unlock()

	now := time.Now()
	hourAgo := now.Add(-time.Hour)
	dayAgo := now.Add(-24 * time.Hour)

	trending := make(map[string]float64)

	for query, timestamps := range recentQueries {
		var recent []time.Time
		for _, ts := range timestamps {
			if ts.After(dayAgo) {
				recent = append(recent, ts)
			}
		}
		recentQueries[query] = recent

		if len(recent) < 5 {
			continue
		}

		hourCount := 0
		dayCount := len(recent)
		for _, ts := range recent {
			if ts.After(hourAgo) {
				hourCount++
			}
		}

		if dayCount > hourCount {
			trendScore := float64(hourCount) / float64(dayCount-hourCount)
			if trendScore > 1.5 {
				trending[query] = trendScore
			}
		}
	}

	for query, score := range trending {
		currentFreq := int64(len(recentQueries[query]))
		boostedFreq := int64(float64(currentFreq) * (1.0 + score))
		if err := p.service.BumpTerm(query, boostedFreq); err != nil {
			p.logger.WithError(err).WithField("term", query).Warn("failed to boost trending term")
			continue
		}

		p.logger.WithFields(logrus.Fields{
			"query":       query,
			"trend_score": score,
			"frequency":   boostedFreq,
		}).Info("detected trending query")
	}
}

func normalizeQuery(query string) string {
	query = strings.ToLower(strings.TrimSpace(query))
	words := strings.FieldsFunc(query, func(c rune) bool {
		return !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == ' ')
	})
	return strings.Join(words, " ")
}

// Stats returns processor statistics.
func (p *Processor) Stats() map[string]interface{} {
	p.freqMutex.RLock()
	pendingUpdates := len(p.freqUpdates)
	p.freqMutex.RUnlock()

	return map[string]interface{}{
		"queue_length":    len(p.logQueue),
		"pending_updates": pendingUpdates,
		"batch_size":      p.batchSize,
		"flush_interval":  p.flushInterval.String(),
	}
}
