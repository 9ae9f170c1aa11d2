// Package finalize runs the strict completion parse of a candidate buffer
// once a turn's stream has ended (or opportunistically before).
package finalize

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
	"github.com/leofalp/streamfield/core/envelope"
)

const languageKey = "language"

// Finalize attempts a strict structural parse of the fence-stripped candidate
// and validates the envelope schema.
//
// A syntax failure yields StatusPending — the common, expected state for most
// of a turn's lifetime, never an error. Complete JSON that is missing the
// required target field, or carries it with a non-string type, yields
// StatusInvalid. Otherwise the result is StatusParsed with optional fields
// passed through when present and of the expected shape, omitted otherwise.
//
// Finalize never fails: every outcome is a FinalResult variant.
func Finalize(candidate, target string) envelope.FinalResult {
	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return envelope.Pending()
	}

	fields, ok := doc.(map[string]any)
	if !ok {
		return envelope.Invalid("top-level value is not an object")
	}

	raw, ok := fields[target]
	if !ok {
		return envelope.Invalid(fmt.Sprintf("missing required field %q", target))
	}
	response, ok := raw.(string)
	if !ok {
		return envelope.Invalid(fmt.Sprintf("field %q is not a string", target))
	}

	env := &envelope.Envelope{Response: response}
	if language, ok := fields[languageKey].(string); ok {
		env.Language = language
	}
	for key, value := range fields {
		if key == target || key == languageKey {
			continue
		}
		if records, ok := asRecordList(value); ok {
			if env.Lists == nil {
				env.Lists = make(map[string][]envelope.Record)
			}
			env.Lists[key] = records
		}
	}

	return envelope.Parsed(env)
}

// Recover is the end-of-turn best effort variant of Finalize. When the strict
// parse reports the candidate as still incomplete it runs the buffer through
// jsonrepair (closing unterminated strings and objects, fixing quotes and
// trailing commas) and parses again. A result obtained that way is marked
// Repaired. Schema validation is identical to Finalize.
func Recover(candidate, target string) envelope.FinalResult {
	result := Finalize(candidate, target)
	if result.Status != envelope.StatusPending {
		return result
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return result
	}
	recovered := Finalize(repaired, target)
	if recovered.Status == envelope.StatusPending {
		return result
	}
	recovered.Repaired = true
	return recovered
}

// asRecordList reports whether value is an array of flat objects whose values
// are all strings, converting it when so. Anything else is not an envelope
// list and is omitted from the result.
func asRecordList(value any) ([]envelope.Record, bool) {
	items, ok := value.([]any)
	if !ok {
		return nil, false
	}
	records := make([]envelope.Record, 0, len(items))
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		record := make(envelope.Record, len(fields))
		for key, raw := range fields {
			text, ok := raw.(string)
			if !ok {
				return nil, false
			}
			record[key] = text
		}
		records = append(records, record)
	}
	return records, true
}
