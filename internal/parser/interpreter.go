package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/license-insight/backend/internal/models"
)

// The interpreter walks classified lines in order and produces one typed
// LogEvent per line. The running date context set by TIMESTAMP lines is
// threaded through the loop as a local value, never stored in package state,
// so repeated interpretation of the same input is always identical.

var (
	dateRegex    = regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})`)
	versionRegex = regexp.MustCompile(`\(v(\d+(?:\.\d+)+)`)

	// Marker sub-patterns. Feature tokens are optionally double-quoted.
	outRegex         = regexp.MustCompile(`OUT:\s*"?([\w.\-+]+)"?\s+([^@\s]+)@(\S+)`)
	inRegex          = regexp.MustCompile(`IN:\s*"?([\w.\-+]+)"?\s+([^@\s]+)@(\S+)`)
	deniedRegex      = regexp.MustCompile(`DENIED:\s*"?([\w.\-+]+)"?\s+([^@\s]+)@(\S+)`)
	unsupportedRegex = regexp.MustCompile(`UNSUPPORTED:\s*"?([\w.\-+]+)"?`)
	reasonRegex      = regexp.MustCompile(`\(([^()]*)\)\s*$`)

	// Metadata sub-patterns.
	licenseFileRegex = regexp.MustCompile(`Using license file:?\s+"?([^"\s]+)"?`)
	pidRegex         = regexp.MustCompile(`\bpid (\d+)`)
	serverPortRegex  = regexp.MustCompile(`lmgrd tcp-port (\d+)`)
	vendorPortRegex  = regexp.MustCompile(`using TCP-port (\d+)`)
	startedOnRegex   = regexp.MustCompile(`Server started on (\S+)`)
	startupOnRegex   = regexp.MustCompile(`startup on (\S+)`)
)

// eventRule pairs a kind predicate with its field extractor. The table is
// evaluated top to bottom and the first match wins, which makes the priority
// order auditable and each rule testable on its own.
type eventRule struct {
	kind    models.EventKind
	matches func(msg string) bool
	extract func(msg string, ev *models.LogEvent)
}

func extractTriple(re *regexp.Regexp, msg string, ev *models.LogEvent) {
	m := re.FindStringSubmatch(msg)
	if m == nil {
		// Marker matched but the tail did not: keep the event for audit
		// display with identity fields unset.
		return
	}
	ev.Feature = m[1]
	ev.User = m[2]
	ev.Host = m[3]
}

var eventRules = []eventRule{
	{
		kind:    models.EventCheckout,
		matches: func(msg string) bool { return strings.Contains(msg, "OUT:") },
		extract: func(msg string, ev *models.LogEvent) { extractTriple(outRegex, msg, ev) },
	},
	{
		kind:    models.EventReturn,
		matches: func(msg string) bool { return strings.Contains(msg, "IN:") },
		extract: func(msg string, ev *models.LogEvent) { extractTriple(inRegex, msg, ev) },
	},
	{
		kind:    models.EventDenied,
		matches: func(msg string) bool { return strings.Contains(msg, "DENIED:") },
		extract: func(msg string, ev *models.LogEvent) {
			extractTriple(deniedRegex, msg, ev)
			if m := reasonRegex.FindStringSubmatch(msg); m != nil {
				ev.Reason = m[1]
			}
		},
	},
	{
		kind:    models.EventUnsupported,
		matches: func(msg string) bool { return strings.Contains(msg, "UNSUPPORTED:") },
		extract: func(msg string, ev *models.LogEvent) {
			if m := unsupportedRegex.FindStringSubmatch(msg); m != nil {
				ev.Feature = m[1]
			}
		},
	},
	{
		kind:    models.EventReserving,
		matches: func(msg string) bool { return strings.Contains(msg, "RESERVING") },
		extract: func(msg string, ev *models.LogEvent) {},
	},
	{
		kind: models.EventError,
		matches: func(msg string) bool {
			return strings.Contains(strings.ToLower(msg), "error") || strings.Contains(msg, "EXITING")
		},
		extract: func(msg string, ev *models.LogEvent) {},
	},
}

// serverName discovery precedence: the generic startup banner only fills an
// unset name, while the specific "Server started on" line may replace a
// generically discovered one. A specific name is final.
type nameSource int

const (
	nameUnset nameSource = iota
	nameGeneric
	nameSpecific
)

// metadataScanner accumulates server identity across lines. Every field is
// first-match-wins except the server name (see nameSource).
type metadataScanner struct {
	meta       models.ServerMetadata
	nameOrigin nameSource
}

func newMetadataScanner() *metadataScanner {
	return &metadataScanner{meta: models.NewServerMetadata()}
}

func (ms *metadataScanner) scan(msg string) {
	if ms.meta.LicenseFile == models.MetadataUnknown {
		if m := licenseFileRegex.FindStringSubmatch(msg); m != nil {
			ms.meta.LicenseFile = m[1]
		}
	}
	if ms.meta.PID == models.MetadataUnknown {
		if m := pidRegex.FindStringSubmatch(msg); m != nil {
			ms.meta.PID = m[1]
		}
	}
	if ms.meta.Port == models.MetadataUnknown {
		if m := serverPortRegex.FindStringSubmatch(msg); m != nil {
			ms.meta.Port = m[1]
		}
	}
	if ms.meta.VendorPort == models.MetadataUnknown {
		if m := vendorPortRegex.FindStringSubmatch(msg); m != nil {
			ms.meta.VendorPort = m[1]
		}
	}
	if ms.meta.Version == models.MetadataUnknown {
		if m := versionRegex.FindStringSubmatch(msg); m != nil {
			ms.meta.Version = m[1]
		}
	}

	if ms.nameOrigin != nameSpecific {
		if m := startedOnRegex.FindStringSubmatch(msg); m != nil {
			ms.meta.ServerName = m[1]
			ms.nameOrigin = nameSpecific
			return
		}
	}
	if ms.nameOrigin == nameUnset {
		if m := startupOnRegex.FindStringSubmatch(msg); m != nil {
			ms.meta.ServerName = m[1]
			ms.nameOrigin = nameGeneric
		}
	}
}

// DefaultDate is the date context attached to events seen before the first
// TIMESTAMP line: January 1st of the current calendar year. An explicit
// fallback, not a failure.
func DefaultDate(now time.Time) string {
	return fmt.Sprintf("1/1/%d", now.Year())
}

// Interpret turns classified lines into typed events and derives server
// metadata in the same pass. The returned slices are in input order.
func Interpret(lines []ClassifiedLine) ([]models.LogEvent, models.ServerMetadata) {
	return interpretAt(lines, time.Now())
}

func interpretAt(lines []ClassifiedLine, now time.Time) ([]models.LogEvent, models.ServerMetadata) {
	events := make([]models.LogEvent, 0, len(lines))
	scanner := newMetadataScanner()
	intern := NewStringIntern()
	currentDate := DefaultDate(now)

	for _, line := range lines {
		// Metadata extraction is opportunistic and independent of the kind
		// the line ends up classified as.
		scanner.scan(line.Message)

		ev := models.LogEvent{
			Time:   line.Time,
			Daemon: intern.Intern(line.Daemon),
			Raw:    line.Raw,
		}

		switch {
		case strings.Contains(line.Message, "TIMESTAMP"):
			if m := dateRegex.FindStringSubmatch(line.Message); m != nil {
				currentDate = m[1]
			}
			ev.Kind = models.EventTimestamp
		case versionRegex.MatchString(line.Message):
			ev.Kind = models.EventVersion
		default:
			ev.Kind = models.EventInfo
			for _, rule := range eventRules {
				if rule.matches(line.Message) {
					ev.Kind = rule.kind
					rule.extract(line.Message, &ev)
					break
				}
			}
		}

		ev.Date = currentDate
		ev.User = intern.Intern(ev.User)
		ev.Host = intern.Intern(ev.Host)
		ev.Feature = intern.Intern(ev.Feature)
		events = append(events, ev)
	}

	return events, scanner.meta
}
