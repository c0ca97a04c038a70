// Package notifier publishes an "extraction completed" event to NATS after
// a pipeline run, for downstream consumers (documentation site rebuilders,
// dashboards) that want to react without polling the review file.
package notifier

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is used when Config.Subject is empty.
const DefaultSubject = "apisurface.extraction.completed"

// ExtractionCompleted is the message published after one pipeline run.
// RunID correlates the event with the CLI's own log lines for that run,
// the same run-identifier-for-correlation idiom the teacher's orchestrator
// components use for tasks and workflow runs (uuid.NewString() per unit
// of work).
type ExtractionCompleted struct {
	RunID          string `json:"runId"`
	PackageName    string `json:"packageName"`
	ReviewFilePath string `json:"reviewFilePath"`
	ApiModelPath   string `json:"apiModelPath"`
	ErrorCount     int    `json:"errorCount"`
	WarningCount   int    `json:"warningCount"`
}

// Notifier publishes ExtractionCompleted events. A nil Notifier (or one
// created with an empty URL) publishes nothing — graceful degradation
// mirroring the teacher's "skip publishing if no NATS client" behavior, so
// callers never need to branch on whether NATS is configured.
type Notifier struct {
	conn    *nats.Conn
	subject string
}

// Connect dials url and returns a Notifier publishing to subject (or
// DefaultSubject if empty). An empty url returns a no-op Notifier.
func Connect(url, subject string) (*Notifier, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if url == "" {
		return &Notifier{subject: subject}, nil
	}
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Notifier{conn: conn, subject: subject}, nil
}

// Publish sends ev as JSON to the configured subject. A no-op Notifier
// (nil connection) returns nil without publishing.
func (n *Notifier) Publish(ev ExtractionCompleted) error {
	if n == nil || n.conn == nil {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal extraction-completed event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish extraction-completed event: %w", err)
	}
	return n.conn.Flush()
}

// Close closes the underlying connection, if any, without draining it.
func (n *Notifier) Close() {
	if n == nil || n.conn == nil {
		return
	}
	n.conn.Close()
}
