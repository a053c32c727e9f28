package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Ticket is a support ticket as delivered by the seed file or intake store.
// Fields keeps every raw field so domain data survives into the index.
type Ticket struct {
	ID      string
	Subject string
	Body    string
	// Content is the legacy name some sources use for Body.
	Content string
	Fields  map[string]interface{}
}

func (t *Ticket) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	// numeric ids must not turn into floats
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	t.Fields = raw
	if id, ok := raw["id"]; ok && id != nil {
		t.ID = fmt.Sprint(id)
	}
	t.Subject = MetaString(raw, "subject")
	t.Body = MetaString(raw, "body")
	t.Content = MetaString(raw, "content")
	return nil
}

func (t Ticket) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.record())
}

// Text resolves the ticket content from either of its legacy field names.
func (t Ticket) Text() string {
	if strings.TrimSpace(t.Body) != "" {
		return t.Body
	}
	return t.Content
}

func (t Ticket) record() map[string]interface{} {
	out := make(map[string]interface{}, len(t.Fields)+4)
	for k, v := range t.Fields {
		out[k] = v
	}
	out["id"] = t.ID
	if t.Subject != "" {
		out["subject"] = t.Subject
	}
	if t.Body != "" {
		out["body"] = t.Body
	}
	if t.Content != "" {
		out["content"] = t.Content
	}
	return out
}

// Metadata merges the flattened classification into the ticket record. Vector
// store metadata must be flat, so nested values are stored as JSON strings.
func (t Ticket) Metadata(c Classification) map[string]interface{} {
	meta := FlattenMetadata(t.record())
	for k, v := range c.Flatten() {
		meta[k] = v
	}
	return meta
}

// FlattenMetadata returns a copy of meta where every value is a scalar or a
// list of strings.
func FlattenMetadata(meta map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		switch val := v.(type) {
		case nil:
			continue
		case string, bool, int, int32, int64, float32, float64:
			out[k] = val
		case []string:
			out[k] = val
		case json.Number:
			if i, err := val.Int64(); err == nil {
				out[k] = i
			} else if f, err := val.Float64(); err == nil {
				out[k] = f
			} else {
				out[k] = val.String()
			}
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprint(val)
				continue
			}
			out[k] = string(encoded)
		}
	}
	return out
}

// TicketFromMetadata rebuilds a ticket from the metadata stored in an index.
func TicketFromMetadata(id string, meta map[string]interface{}) Ticket {
	fields := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		fields[k] = v
	}
	return Ticket{
		ID:      id,
		Subject: MetaString(meta, "subject"),
		Body:    MetaString(meta, "body"),
		Content: MetaString(meta, "content"),
		Fields:  fields,
	}
}

// ClassifiedTicket is a stored ticket with its classification rebuilt.
type ClassifiedTicket struct {
	Ticket         Ticket          `json:"-"`
	Classification *Classification `json:"classification,omitempty"`
}

func (ct ClassifiedTicket) MarshalJSON() ([]byte, error) {
	out := ct.Ticket.record()
	if ct.Classification != nil {
		out["classification"] = ct.Classification
	}
	return json.Marshal(out)
}

// IngestItem is the outcome of ingesting one record.
type IngestItem struct {
	ID             string          `json:"id"`
	Classification *Classification `json:"classification,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// IngestReport summarizes a batch ingestion run.
type IngestReport struct {
	Count  int          `json:"count"`
	Failed int          `json:"failed"`
	Items  []IngestItem `json:"items"`
}
