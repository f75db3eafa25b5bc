package game

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize      = 1024                   // Circular buffer size
	MaxEventsPerSec      = 2000                   // Global rate limit
	MaxEventsPerSource   = 50                     // Per-entity rate limit per second
	BatchFlushSize       = 64                     // Events per batch write
	BatchFlushInterval   = 250 * time.Millisecond // How often to flush
	SourceLimiterCleanup = 5 * time.Minute        // Cleanup interval for source limiters
)

// EventLog is a bounded, rate-limited match history written as JSONL.
// Emit never blocks the simulation: when the buffer is full the oldest
// pending event is dropped.
type EventLog struct {
	bufMu     sync.Mutex
	buffer    [EventBufferSize]Event
	writeHead uint64 // next sequence to assign
	readHead  uint64 // next sequence to flush

	globalLimiter  *rate.Limiter
	sourceLimiters sync.Map // map[string]*sourceLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
	writtenCount uint64 // atomic
}

type sourceLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nano
}

// NewEventLog creates a new bounded event log
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens filePath for append and begins the async writer. An empty path
// keeps the log in memory only.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	el.filePath = filePath
	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open event log %s: %w", filePath, err)
		}
		el.file = file
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	return nil
}

// Stop flushes pending events and closes the file
func (el *EventLog) Stop() {
	if !el.running.Load() {
		return
	}
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
			el.file = nil
		}
		el.fileMu.Unlock()
	})
}

// Emit adds an event with rate limiting.
// Returns false if the log is stopped or the event was rate limited.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	// Per-source limit keeps one noisy entity from starving the rest
	if event.SourceID != "" && !el.sourceLimiter(event.SourceID).Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	el.bufMu.Lock()
	if el.writeHead-el.readHead >= EventBufferSize {
		el.readHead++
		atomic.AddUint64(&el.droppedCount, 1)
	}
	el.writeHead++
	event.Sequence = el.writeHead
	el.buffer[el.writeHead%EventBufferSize] = event
	el.bufMu.Unlock()

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

func (el *EventLog) sourceLimiter(id string) *rate.Limiter {
	now := time.Now().UnixNano()
	if entry, ok := el.sourceLimiters.Load(id); ok {
		e := entry.(*sourceLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &sourceLimiterEntry{
		limiter: rate.NewLimiter(MaxEventsPerSource, MaxEventsPerSource/5),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.sourceLimiters.LoadOrStore(id, entry)
	return actual.(*sourceLimiterEntry).limiter
}

// writerLoop batches and writes events to disk asynchronously
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}

		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

// cleanupLoop removes stale source limiters to prevent memory leak
func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(SourceLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupSourceLimiters()
		}
	}
}

func (el *EventLog) cleanupSourceLimiters() {
	cutoff := time.Now().Add(-SourceLimiterCleanup).UnixNano()
	el.sourceLimiters.Range(func(key, value interface{}) bool {
		if value.(*sourceLimiterEntry).lastUsed.Load() < cutoff {
			el.sourceLimiters.Delete(key)
		}
		return true
	})
}

// collectBatch moves up to BatchFlushSize pending events into batch
func (el *EventLog) collectBatch(batch []Event) []Event {
	el.bufMu.Lock()
	defer el.bufMu.Unlock()

	for el.readHead < el.writeHead && len(batch) < BatchFlushSize {
		el.readHead++
		batch = append(batch, el.buffer[el.readHead%EventBufferSize])
	}
	return batch
}

// flushBatch appends events as newline-delimited JSON
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		atomic.AddUint64(&el.writtenCount, uint64(len(batch)))
		return
	}

	w := bufio.NewWriter(el.file)
	enc := json.NewEncoder(w)
	for _, event := range batch {
		if err := enc.Encode(event); err != nil {
			continue
		}
		atomic.AddUint64(&el.writtenCount, 1)
	}
	w.Flush()
}

// GetStats returns metrics for monitoring
func (el *EventLog) GetStats() map[string]interface{} {
	el.bufMu.Lock()
	pending := el.writeHead - el.readHead
	el.bufMu.Unlock()

	return map[string]interface{}{
		"total":   atomic.LoadUint64(&el.totalCount),
		"dropped": atomic.LoadUint64(&el.droppedCount),
		"written": atomic.LoadUint64(&el.writtenCount),
		"pending": pending,
		"running": el.running.Load(),
		"path":    el.filePath,
	}
}

// GetDroppedCount returns the number of dropped events
func (el *EventLog) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&el.droppedCount)
}

// GetTotalCount returns the total number of events accepted
func (el *EventLog) GetTotalCount() uint64 {
	return atomic.LoadUint64(&el.totalCount)
}
