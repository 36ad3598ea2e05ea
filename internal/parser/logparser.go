package parser

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/license-insight/backend/internal/models"
)

// ProgressCallback is called periodically during parsing to report progress.
type ProgressCallback func(linesProcessed int, bytesProcessed int64, totalBytes int64)

// progressInterval is how many lines pass between progress callbacks.
const progressInterval = 100000

// maxLineBytes bounds a single log line; anything longer is daemon garbage.
const maxLineBytes = 1024 * 1024

// LogParser parses license daemon activity logs. It holds no state between
// calls: each parse is a pure function of its input and may run concurrently
// with others.
type LogParser struct{}

// NewLogParser creates a log parser.
func NewLogParser() *LogParser {
	return &LogParser{}
}

// ParseText interprets an in-memory log. Used by tests and by callers that
// already read the file.
func (p *LogParser) ParseText(text string) *models.ParsedLog {
	return p.build(ClassifyText(text))
}

// ParseFile parses a log file from disk.
func (p *LogParser) ParseFile(path string) (*models.ParsedLog, error) {
	return p.ParseFileWithProgress(path, nil)
}

// ParseFileWithProgress parses a log file, invoking onProgress every
// progressInterval lines so large uploads can report status.
func (p *LogParser) ParseFileWithProgress(path string, onProgress ProgressCallback) (*models.ParsedLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	var totalBytes int64
	if info, err := f.Stat(); err == nil {
		totalBytes = info.Size()
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var lines []ClassifiedLine
	var lineCount int
	var bytesRead int64

	for scanner.Scan() {
		raw := scanner.Text()
		lineCount++
		bytesRead += int64(len(raw)) + 1

		if cl, ok := ClassifyLine(raw); ok {
			lines = append(lines, cl)
		}

		if onProgress != nil && lineCount%progressInterval == 0 {
			onProgress(lineCount, bytesRead, totalBytes)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading log file: %w", err)
	}

	if onProgress != nil {
		onProgress(lineCount, bytesRead, totalBytes)
	}

	return p.build(lines), nil
}

// build runs interpretation and reconciliation over classified lines and
// assembles the immutable parse result.
func (p *LogParser) build(lines []ClassifiedLine) *models.ParsedLog {
	result := models.NewParsedLog()
	events, meta := Interpret(lines)
	result.Events = events
	result.Metadata = meta
	result.Sessions = Reconcile(events)
	result.Denials = Denials(events)
	result.TimeRange = timeRange(events)
	return result
}

// timeRange finds the earliest and latest instants across all events that
// carry a resolvable timestamp.
func timeRange(events []models.LogEvent) *models.TimeRange {
	var min, max time.Time
	found := false
	for i := range events {
		ts, ok := events[i].Timestamp()
		if !ok {
			continue
		}
		if !found || ts.Before(min) {
			min = ts
		}
		if !found || ts.After(max) {
			max = ts
		}
		found = true
	}
	if !found {
		return nil
	}
	return &models.TimeRange{Start: min, End: max}
}
