package logger

import (
	"fmt"
	"sync"
	"time"
)

// FileProgress counts processor files as they finish during a run.
// It is safe for concurrent use by the per-file workers.
type FileProgress struct {
	logger    Logger
	total     int
	accepted  int
	skipped   int
	startTime time.Time
	mutex     sync.Mutex
}

// NewFileProgress creates a tracker for a run over total files.
func NewFileProgress(log Logger, total int) *FileProgress {
	if log == nil {
		log = GetGlobalLogger()
	}
	p := &FileProgress{
		logger:    log.WithComponent("progress"),
		total:     total,
		startTime: time.Now(),
	}
	p.logger.WithField("files", total).Debug("Processing processor files")
	return p
}

// Accepted records a file that contributed records.
func (p *FileProgress) Accepted(file string, records int) {
	p.mutex.Lock()
	p.accepted++
	done := p.accepted + p.skipped
	p.mutex.Unlock()

	p.logger.WithFields(Fields{
		"file":     file,
		"records":  records,
		"progress": fmt.Sprintf("%d/%d", done, p.total),
	}).Info("File accepted")
}

// Skipped records a file that was excluded from the run.
func (p *FileProgress) Skipped(file string, reason error) {
	p.mutex.Lock()
	p.skipped++
	done := p.accepted + p.skipped
	p.mutex.Unlock()

	p.logger.WithError(reason).WithFields(Fields{
		"file":     file,
		"progress": fmt.Sprintf("%d/%d", done, p.total),
	}).Warn("File skipped")
}

// Stats returns the counters collected so far.
func (p *FileProgress) Stats() ProgressStats {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return ProgressStats{
		Total:    p.total,
		Accepted: p.accepted,
		Skipped:  p.skipped,
		Duration: time.Since(p.startTime),
	}
}

// Complete logs the final counters.
func (p *FileProgress) Complete() ProgressStats {
	stats := p.Stats()
	p.logger.WithFields(Fields{
		"accepted": stats.Accepted,
		"skipped":  stats.Skipped,
		"duration": stats.Duration.String(),
	}).Info("Processor files done")
	return stats
}

// ProgressStats contains progress statistics
type ProgressStats struct {
	Total    int           `json:"total"`
	Accepted int           `json:"accepted"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// String returns a human-readable representation of the progress
func (ps ProgressStats) String() string {
	return fmt.Sprintf("%d/%d files (%d accepted, %d skipped) in %v",
		ps.Accepted+ps.Skipped, ps.Total, ps.Accepted, ps.Skipped, ps.Duration)
}

// TimedStage runs fn and logs how long the named stage took.
func TimedStage(stage string, log Logger, fn func() error) error {
	if log == nil {
		log = GetGlobalLogger()
	}
	start := time.Now()
	err := fn()

	entry := log.WithFields(Fields{
		"stage":    stage,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Error("Stage failed")
	} else {
		entry.Debug("Stage completed")
	}
	return err
}
