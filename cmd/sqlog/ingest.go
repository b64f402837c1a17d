package main

import (
	"encoding/json"
	"time"

	"go.sqlog.dev/core/record"
)

// lineEvent is the accepted JSON shape of an input line.
type lineEvent struct {
	Timestamp  time.Time              `json:"timestamp"`
	Level      string                 `json:"level"`
	Exception  string                 `json:"exception"`
	Template   string                 `json:"template"`
	Message    string                 `json:"message"`
	Properties map[string]interface{} `json:"properties"`
}

// parseLine decodes a JSON event into a Record. Any line which isn't a JSON
// event is stored as an Info record of the raw line, stamped with the
// current time.
func parseLine(line []byte) record.Record {
	var evt lineEvent
	if err := json.Unmarshal(line, &evt); err != nil || (evt.Template == "" && evt.Message == "") {
		return record.Record{
			Timestamp:       time.Now(),
			Level:           record.Info,
			MessageTemplate: string(line),
		}
	}

	var rec = record.Record{
		Timestamp:       evt.Timestamp,
		Level:           record.Info,
		Exception:       evt.Exception,
		MessageTemplate: evt.Template,
		RenderedMessage: evt.Message,
		Properties:      evt.Properties,
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.MessageTemplate == "" {
		rec.MessageTemplate = evt.Message
	}
	if lvl, err := record.ParseLevel(evt.Level); err == nil {
		rec.Level = lvl
	}
	return rec
}
