// Package report delivers failure reports from the ingestion core to the
// outside world. The core never lets a fault escape its boundary; every
// caught failure goes through a Reporter.
package report

import (
	"context"
	"log"
)

// Severity levels for reports.
const (
	SeverityInfo = iota
	SeverityWarning
	SeverityError
)

// Reporter receives (message, detail, severity) for every caught failure.
type Reporter interface {
	Report(ctx context.Context, message, detail string, severity int)
}

// LogReporter writes reports to the standard logger.
type LogReporter struct{}

func (LogReporter) Report(ctx context.Context, message, detail string, severity int) {
	label := "INFO"
	switch severity {
	case SeverityWarning:
		label = "WARN"
	case SeverityError:
		label = "ERROR"
	}
	if detail != "" {
		log.Printf("[Report] %s: %s (%s)", label, message, detail)
		return
	}
	log.Printf("[Report] %s: %s", label, message)
}

// Multi fans a report out to several reporters.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, message, detail string, severity int) {
	for _, r := range m {
		r.Report(ctx, message, detail, severity)
	}
}
