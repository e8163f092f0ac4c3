// Package normalizer maps raw upstream price records onto display keys.
package normalizer

import (
	"fmt"
	"math"

	"PriceTracker/internal/model"
)

// PerGram divides rate by unit. A missing or non-numeric operand, a zero
// unit, or a zero result yields the placeholder.
func PerGram(rec model.RawPriceRecord) model.Price {
	if !rec.Rate.Valid || !rec.Unit.Valid || rec.Unit.Value == 0 {
		return model.Price{}
	}
	v := rec.Rate.Value / rec.Unit.Value
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return model.Price{}
	}
	return model.NewPrice(v)
}

// Normalize builds the current-price board. The five canonical keys are
// always present; a later record for the same key replaces an earlier one.
func Normalize(records []model.RawPriceRecord) (*model.PriceBoard, error) {
	board := model.NewPriceBoard()
	for i, rec := range records {
		key, err := recordKey(i, rec)
		if err != nil {
			return nil, err
		}
		board.Set(key, PerGram(rec))
	}
	return board, nil
}

// NormalizeRange groups dated prices by display key in upstream order.
// Keys with no records are absent.
func NormalizeRange(records []model.RawPriceRecord) (*model.RangeGroups, error) {
	groups := &model.RangeGroups{}
	for i, rec := range records {
		key, err := recordKey(i, rec)
		if err != nil {
			return nil, err
		}
		groups.Append(model.RangeEntry{
			Name:  key,
			Date:  rec.RecordDate,
			Price: PerGram(rec),
		})
	}
	return groups, nil
}

func recordKey(i int, rec model.RawPriceRecord) (model.DisplayKey, error) {
	if rec.ProductTypeName == "" {
		return "", &model.DataError{Reason: fmt.Sprintf("record %d: missing metaProdTypeName", i)}
	}
	key, err := DisplayKeyFor(rec)
	if err != nil {
		return "", &model.DataError{Reason: fmt.Sprintf("record %d", i), Err: err}
	}
	return key, nil
}
