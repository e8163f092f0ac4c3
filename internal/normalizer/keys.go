package normalizer

import (
	"fmt"
	"strings"

	"PriceTracker/internal/model"
)

// goldProductType is the one product type whose key depends on purity.
const goldProductType = "Gold"

// productKeys maps upstream product type names to display keys. Names not
// listed here pass through verbatim.
var productKeys = map[string]model.DisplayKey{
	"Diamond":  model.KeyDiamond,
	"ROSEGOLD": model.KeyRoseGold,
	"Silver":   model.KeySilver,
}

// DisplayKeyFor derives the display key of a record. Gold records are keyed
// by the grade before the first "K" of their purity; a purity without "K"
// is rejected with model.ErrMalformedRecord.
func DisplayKeyFor(rec model.RawPriceRecord) (model.DisplayKey, error) {
	if rec.ProductTypeName == goldProductType {
		grade, _, found := strings.Cut(rec.Purity, "K")
		if !found {
			return "", fmt.Errorf("%w: gold purity %q has no K grade", model.ErrMalformedRecord, rec.Purity)
		}
		return model.DisplayKey("GOLD (" + grade + "K)"), nil
	}
	if k, ok := productKeys[rec.ProductTypeName]; ok {
		return k, nil
	}
	return model.DisplayKey(rec.ProductTypeName), nil
}
