package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"hitrivals/schedule/internal/models"
)

// Shape names the envelope a schedule payload was decoded from
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeEnvelope
	ShapeArray
	ShapeGeneric
)

func (s Shape) String() string {
	switch s {
	case ShapeEnvelope:
		return "envelope"
	case ShapeArray:
		return "array"
	case ShapeGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// envelope is the documented response: {statusCode, body: [...]}
type envelope struct {
	StatusCode *int                 `json:"statusCode"`
	Body       *[]models.GameRecord `json:"body"`
}

// DecodeRecords parses a schedule payload, trying the typed envelope, then a
// bare array, then a generic object with a "body" array. Record order is kept.
func DecodeRecords(data []byte) ([]models.GameRecord, Shape, error) {
	var errs []error

	var env envelope
	err := json.Unmarshal(data, &env)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("envelope: %w", err))
	case env.StatusCode == nil || env.Body == nil:
		errs = append(errs, errors.New("envelope: missing statusCode or body"))
	default:
		return *env.Body, ShapeEnvelope, nil
	}

	var arr []models.GameRecord
	if err := json.Unmarshal(data, &arr); err == nil {
		return arr, ShapeArray, nil
	} else {
		errs = append(errs, fmt.Errorf("array: %w", err))
	}

	records, err := decodeGeneric(data)
	if err == nil {
		return records, ShapeGeneric, nil
	}
	errs = append(errs, fmt.Errorf("generic: %w", err))

	return nil, ShapeUnknown, fmt.Errorf("%w: %w", ErrUndecodable, errors.Join(errs...))
}

// decodeGeneric pulls "body" out of an untyped object and re-decodes it
func decodeGeneric(data []byte) ([]models.GameRecord, error) {
	var dict map[string]interface{}
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, err
	}

	rawBody, ok := dict["body"].([]interface{})
	if !ok {
		return nil, errors.New("body is not an array")
	}

	items := make([]map[string]interface{}, 0, len(rawBody))
	for i, item := range rawBody {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("body[%d] is not an object", i)
		}
		items = append(items, m)
	}

	// Marshal back to JSON then unmarshal to GameRecord
	jsonData, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	var records []models.GameRecord
	if err := json.Unmarshal(jsonData, &records); err != nil {
		return nil, err
	}
	return records, nil
}
