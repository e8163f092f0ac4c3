package collector

import (
	"bytes"
	"encoding/json"

	"PriceTracker/internal/model"
)

// DecodeRecords parses an upstream payload. The payload must be a JSON
// array of objects; anything else is a *model.DataError.
func DecodeRecords(raw []byte) ([]model.RawPriceRecord, error) {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return nil, &model.DataError{Reason: "malformed JSON"}
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &model.DataError{Reason: "payload is not a list"}
	}
	var records []model.RawPriceRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, &model.DataError{Reason: "decode records", Err: err}
	}
	return records, nil
}
