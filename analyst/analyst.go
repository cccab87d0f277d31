// Package analyst answers free-text questions about a stored flight by
// handing its summary, a few sample messages and the detected findings to a
// language model.
package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vainnor/flightlog/insight"
	"github.com/vainnor/flightlog/llm"
	"github.com/vainnor/flightlog/metrics"
	"github.com/vainnor/flightlog/summary"
	"github.com/vainnor/flightlog/types"
)

// SampleCount is how many leading messages go into the context.
const SampleCount = 3

const systemPrompt = "You are an expert UAV log analyst."

// ErrNotConfigured is reported when no provider was set up.
var ErrNotConfigured = errors.New("language model is not configured")

// Context is everything the model is told about a flight.
type Context struct {
	TotalMessages   int                    `json:"total_messages"`
	MessageTypes    map[string]int         `json:"message_types"`
	AverageAltitude *float64               `json:"average_altitude,omitempty"`
	Samples         []types.DecodedMessage `json:"samples"`
	Findings        []insight.Finding      `json:"findings,omitempty"`
}

// BuildContext recomputes the summary over messages and collects samples
// and findings.
func BuildContext(messages []types.DecodedMessage, th insight.Thresholds) Context {
	s := summary.Summarize(messages)
	n := SampleCount
	if len(messages) < n {
		n = len(messages)
	}
	return Context{
		TotalMessages:   s.TotalMessages,
		MessageTypes:    s.MessageTypes,
		AverageAltitude: s.AverageAltitude,
		Samples:         messages[:n],
		Findings:        insight.Analyze(messages, th),
	}
}

// Answer is the reply to a chat query.
type Answer struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type Analyst struct {
	provider   llm.Provider
	model      string
	maxTokens  int
	thresholds insight.Thresholds
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Analyst)

func WithMaxTokens(n int) Option {
	return func(a *Analyst) { a.maxTokens = n }
}

// WithThresholds replaces insight.DefaultThresholds for finding detection.
func WithThresholds(th insight.Thresholds) Option {
	return func(a *Analyst) { a.thresholds = th }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Analyst) { a.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyst) { a.metrics = m }
}

// New returns an analyst. provider may be nil, in which case every answer
// is the degraded one.
func New(provider llm.Provider, model string, opts ...Option) *Analyst {
	a := &Analyst{
		provider:   provider,
		model:      model,
		maxTokens:  1024,
		thresholds: insight.DefaultThresholds(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer asks the model about a flight. A model failure never fails the
// call; the error text is returned as the response instead.
func (a *Analyst) Answer(ctx context.Context, sessionID string, messages []types.DecodedMessage, query string) Answer {
	qc := BuildContext(messages, a.thresholds)

	text, err := a.complete(ctx, qc, query)
	if err != nil {
		a.metrics.LLMCall("failed")
		a.logger.Warn("language model call failed", "session_id", sessionID, "error", err)
		return Answer{
			Response:  fmt.Sprintf("No response from model: %v", err),
			SessionID: sessionID,
		}
	}
	a.metrics.LLMCall("ok")
	return Answer{Response: text, SessionID: sessionID}
}

func (a *Analyst) complete(ctx context.Context, qc Context, query string) (string, error) {
	if a.provider == nil {
		return "", ErrNotConfigured
	}

	prompt, err := Prompt(qc, query)
	if err != nil {
		return "", err
	}

	response, err := a.provider.Complete(ctx, llm.Request{
		Model:     a.model,
		System:    systemPrompt,
		Messages:  []llm.Message{llm.UserMessage(prompt)},
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(response.Content) == "" {
		return "No meaningful response from model.", nil
	}
	return response.Content, nil
}

// Prompt renders the user prompt for a query.
func Prompt(qc Context, query string) (string, error) {
	var b strings.Builder

	b.WriteString("You are an expert UAV log analyst. Your job is to analyze UAV telemetry logs and answer user questions.\n\n")
	b.WriteString("Here is the summary of telemetry data:\n")
	fmt.Fprintf(&b, "- Total messages: %d\n", qc.TotalMessages)
	fmt.Fprintf(&b, "- Message types: %s\n", formatTypes(qc.MessageTypes))
	if qc.AverageAltitude != nil {
		fmt.Fprintf(&b, "- Average altitude: %g\n", *qc.AverageAltitude)
	} else {
		b.WriteString("- Average altitude: Not available\n")
	}

	b.WriteString("\nSome sample messages:\n")
	for _, msg := range qc.Samples {
		line, err := json.Marshal(msg)
		if err != nil {
			return "", fmt.Errorf("rendering sample %s: %w", msg.Type, err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}

	if len(qc.Findings) > 0 {
		b.WriteString("\nEvents detected in the log:\n")
		for _, f := range qc.Findings {
			fmt.Fprintf(&b, "- [%s] %s", f.Severity, f.Message)
			if f.Timestamp != "" {
				fmt.Fprintf(&b, " at %s", f.Timestamp)
			}
			b.WriteByte('\n')
		}
	}

	b.WriteString(`
Look for:
- Sudden drops in altitude
- RC signal loss or failsafe events
- GPS glitches or low satellite counts
- Low battery voltage warnings
- Unusual mode transitions
- Errors or warnings in logs
`)
	fmt.Fprintf(&b, "\nUser question: %q\n\n", query)
	b.WriteString("Please provide an accurate, technically insightful answer.\n")
	return b.String(), nil
}

// formatTypes lists type names by descending count, then by name.
func formatTypes(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	return strings.Join(names, ", ")
}
