package web

import (
	"PriceTracker/internal/model"
)

// LoadingIndicator is shown in place of a price while prices are loading.
const LoadingIndicator = "Loading..."

// Row is one line of the current-price table.
type Row struct {
	Key   model.DisplayKey `json:"name"`
	Value string           `json:"price"`
}

// RangeRow is one line of the range table. Name is only set on the first
// row of each group.
type RangeRow struct {
	Name  model.DisplayKey `json:"name,omitempty"`
	Date  string           `json:"date"`
	Value string           `json:"price"`
}

// RichRows lays the board out in canonical order. A nil board renders the
// loading indicator in every price cell.
func RichRows(board *model.PriceBoard) []Row {
	keys := model.CanonicalKeys()
	rows := make([]Row, len(keys))
	for i, k := range keys {
		value := LoadingIndicator
		if board != nil {
			value = board.Get(k).Rupees()
		}
		rows[i] = Row{Key: k, Value: value}
	}
	return rows
}

// RichRangeRows flattens the groups in group order without re-sorting.
// The rich surface has no entry cap.
func RichRangeRows(groups *model.RangeGroups) []RangeRow {
	rows := make([]RangeRow, 0, groups.Len())
	for _, k := range groups.Keys() {
		for i, e := range groups.Entries(k) {
			row := RangeRow{Date: e.Date, Value: e.Price.Rupees()}
			if i == 0 {
				row.Name = k
			}
			rows = append(rows, row)
		}
	}
	return rows
}
