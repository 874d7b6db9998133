// Package logtail tails per-worker Claude Code JSONL logs incrementally,
// turning new lines into priced usage.ApiCall entries while surviving log
// rotation. It is the only place that knows a log file's byte offset.
package logtail

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/forgehq/forge/internal/usage"
)

// Tailer holds the {path, position, inode, source} tuple for one worker's
// log file. Not safe for concurrent use by multiple goroutines; callers
// serialize calls to ReadNewLines per Tailer (typically one per worker,
// driven off watcher.Event).
type Tailer struct {
	Path     string
	Source   string // worker id these entries are tagged with
	position int64
	inode    uint64

	calc *usage.Calculator
}

// New creates a Tailer over path, tagging parsed entries with source
// (typically the worker id). calc may be nil to use default pricing.
func New(path, source string, calc *usage.Calculator) *Tailer {
	if calc == nil {
		calc = usage.NewCalculator(nil, func(raw, normalized string) {
			log.Printf("logtail: unknown model %q (normalized %q), using fallback pricing", raw, normalized)
		})
	}
	return &Tailer{Path: path, Source: source, calc: calc}
}

// ReadNewLines opens the file, detects rotation via inode comparison (Unix
// only — a no-op elsewhere), seeks to the stored position, and returns any
// complete new lines as parsed ApiCalls. Malformed or unrecognized lines are
// skipped, never an error.
func (t *Tailer) ReadNewLines() ([]usage.ApiCall, error) {
	f, err := os.Open(t.Path) //nolint:gosec // G304: path is operator-configured, not user input
	if err != nil {
		return nil, err
	}
	defer f.Close()

	inode, err := fileInode(f)
	if err == nil && t.inode != 0 && inode != t.inode {
		// File rotated out from under us: start over from the top.
		t.position = 0
	}
	t.inode = inode

	if _, err := f.Seek(t.position, io.SeekStart); err != nil {
		return nil, err
	}

	var calls []usage.ApiCall
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 && (err == nil || err == io.EOF) {
			trimmed := strings.TrimRight(line, "\r\n")
			if strings.HasSuffix(line, "\n") {
				t.position += int64(len(line))
				if call := t.parseLine(trimmed); call != nil {
					calls = append(calls, *call)
				}
			}
			// A final unterminated line is left for the next read; position
			// is not advanced past it.
		}
		if err != nil {
			break
		}
	}
	return calls, nil
}

// parseLine parses one JSON log line into an ApiCall. Non-JSON lines and
// event types without usage data return nil with no error: a bad line is
// skipped, never fatal to the tail.
func (t *Tailer) parseLine(line string) *usage.ApiCall {
	if !strings.HasPrefix(line, "{") {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		log.Printf("logtail: malformed json line from %s: %v", t.Source, err)
		return nil
	}

	var eventType string
	if err := unmarshalField(raw, "type", &eventType); err != nil {
		return nil
	}

	switch usage.EventType(eventType) {
	case usage.EventAssistant:
		return t.parseAssistant(raw)
	case usage.EventResult:
		return t.parseResult(raw)
	default:
		return nil
	}
}

func (t *Tailer) parseAssistant(raw map[string]json.RawMessage) *usage.ApiCall {
	var message map[string]json.RawMessage
	if err := unmarshalField(raw, "message", &message); err != nil {
		return nil
	}
	var usageObj map[string]json.RawMessage
	if err := unmarshalField(message, "usage", &usageObj); err != nil {
		return nil
	}

	var model string
	_ = unmarshalField(message, "model", &model)
	if model == "" {
		model = "unknown"
	}

	input, output, cacheCreate, cacheRead := parseUsageTokens(usageObj)
	if input == 0 && output == 0 {
		return nil
	}

	call := &usage.ApiCall{
		Timestamp:           eventTimestamp(raw),
		WorkerID:            t.Source,
		Model:               model,
		InputTokens:         input,
		OutputTokens:        output,
		CacheCreationTokens: cacheCreate,
		CacheReadTokens:     cacheRead,
		EventType:           usage.EventAssistant,
	}
	call.CostUSD = t.calc.Cost(model, input, output, cacheCreate, cacheRead)
	_ = unmarshalField(raw, "session_id", &call.SessionID)
	_ = unmarshalField(raw, "bead_id", &call.BeadID)
	return call
}

func (t *Tailer) parseResult(raw map[string]json.RawMessage) *usage.ApiCall {
	var usageObj map[string]json.RawMessage
	if err := unmarshalField(raw, "usage", &usageObj); err != nil {
		return nil
	}

	input, output, cacheCreate, cacheRead := parseUsageTokens(usageObj)
	if input == 0 && output == 0 && cacheCreate == 0 && cacheRead == 0 {
		return nil
	}

	model := extractModelFromResult(raw, usageObj)

	var costUSD float64
	hasCost := unmarshalField(raw, "total_cost_usd", &costUSD) == nil
	if !hasCost {
		costUSD = t.calc.Cost(model, input, output, cacheCreate, cacheRead)
	}

	call := &usage.ApiCall{
		Timestamp:           eventTimestamp(raw),
		WorkerID:            t.Source,
		Model:               model,
		InputTokens:         input,
		OutputTokens:        output,
		CacheCreationTokens: cacheCreate,
		CacheReadTokens:     cacheRead,
		CostUSD:             costUSD,
		EventType:           usage.EventResult,
	}
	_ = unmarshalField(raw, "session_id", &call.SessionID)
	_ = unmarshalField(raw, "bead_id", &call.BeadID)
	return call
}

// extractModelFromResult prefers modelUsage's first key (GLM/z.ai format),
// then usage.model, else "unknown".
func extractModelFromResult(raw, usageObj map[string]json.RawMessage) string {
	if rawModelUsage, ok := raw["modelUsage"]; ok {
		// Walk tokens rather than decoding into a map, whose iteration order
		// is random, so the key that comes first in the document wins.
		dec := json.NewDecoder(bytes.NewReader(rawModelUsage))
		if tok, err := dec.Token(); err == nil && tok == json.Delim('{') {
			if key, err := dec.Token(); err == nil {
				if k, ok := key.(string); ok {
					return k
				}
			}
		}
	}
	var model string
	if err := unmarshalField(usageObj, "model", &model); err == nil && model != "" {
		return model
	}
	return "unknown"
}

// eventTimestamp reads the event's own RFC 3339 timestamp when present,
// falling back to arrival time so a call is never stamped with the zero
// time.
func eventTimestamp(raw map[string]json.RawMessage) time.Time {
	var s string
	if err := unmarshalField(raw, "timestamp", &s); err == nil {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts
		}
	}
	return time.Now()
}

// parseUsageTokens reads Anthropic-style fields, falling back to
// OpenAI-style prompt_tokens/completion_tokens when the Anthropic fields
// are absent or zero.
func parseUsageTokens(usageObj map[string]json.RawMessage) (input, output, cacheCreate, cacheRead int64) {
	_ = unmarshalField(usageObj, "input_tokens", &input)
	_ = unmarshalField(usageObj, "output_tokens", &output)
	_ = unmarshalField(usageObj, "cache_creation_input_tokens", &cacheCreate)
	_ = unmarshalField(usageObj, "cache_read_input_tokens", &cacheRead)

	if input == 0 {
		_ = unmarshalField(usageObj, "prompt_tokens", &input)
	}
	if output == 0 {
		_ = unmarshalField(usageObj, "completion_tokens", &output)
	}
	return input, output, cacheCreate, cacheRead
}

func unmarshalField(obj map[string]json.RawMessage, key string, out interface{}) error {
	raw, ok := obj[key]
	if !ok {
		return errFieldMissing
	}
	return json.Unmarshal(bytes.TrimSpace(raw), out)
}

var errFieldMissing = errFieldMissingType{}

type errFieldMissingType struct{}

func (errFieldMissingType) Error() string { return "field missing" }
