package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Placeholder stands in for a price the upstream source did not provide.
const Placeholder = "-"

// DisplayKey is the label a commodity is shown under.
type DisplayKey string

const (
	KeyDiamond  DisplayKey = "DIAMOND"
	KeyGold18K  DisplayKey = "GOLD (18K)"
	KeyGold22K  DisplayKey = "GOLD (22K)"
	KeyRoseGold DisplayKey = "ROSEGOLD"
	KeySilver   DisplayKey = "SILVER"
)

// CanonicalKeys returns the five display keys in display order.
func CanonicalKeys() []DisplayKey {
	return []DisplayKey{KeyDiamond, KeyGold18K, KeyGold22K, KeyRoseGold, KeySilver}
}

// Number is a JSON value that may arrive as a number or a numeric string.
// Anything else (null, missing, text, objects) decodes to an invalid Number.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*n = Number{}
		return nil
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

// RawPriceRecord is one product rate as returned by the upstream source.
type RawPriceRecord struct {
	ProductTypeName string `json:"metaProdTypeName"`
	Purity          string `json:"purity"`
	Rate            Number `json:"rate"`
	Unit            Number `json:"unit"`
	RecordDate      string `json:"todayDate"`
}

// Price is a per-gram value or the placeholder.
type Price struct {
	Value float64
	Valid bool
}

// NewPrice returns a valid Price.
func NewPrice(v float64) Price { return Price{Value: v, Valid: true} }

// String formats the value with the shortest exact representation, or the
// placeholder when no value is present.
func (p Price) String() string {
	if !p.Valid {
		return Placeholder
	}
	return strconv.FormatFloat(p.Value, 'f', -1, 64)
}

// Rupees is the per-gram label shown on the home and page tables.
func (p Price) Rupees() string {
	return "₹ " + p.String() + " /gm"
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return json.Marshal(Placeholder)
	}
	return json.Marshal(p.Value)
}

// PriceBoard maps display keys to prices and remembers key order.
type PriceBoard struct {
	keys   []DisplayKey
	values map[DisplayKey]Price
}

// NewPriceBoard returns a board pre-seeded with every canonical key set to
// the placeholder.
func NewPriceBoard() *PriceBoard {
	b := &PriceBoard{values: make(map[DisplayKey]Price)}
	for _, k := range CanonicalKeys() {
		b.Set(k, Price{})
	}
	return b
}

// Set stores p under k. A new key goes to the end; an existing key keeps
// its position.
func (b *PriceBoard) Set(k DisplayKey, p Price) {
	if b.values == nil {
		b.values = make(map[DisplayKey]Price)
	}
	if _, ok := b.values[k]; !ok {
		b.keys = append(b.keys, k)
	}
	b.values[k] = p
}

// Get returns the price for k, or the placeholder when k is unknown.
func (b *PriceBoard) Get(k DisplayKey) Price {
	return b.values[k]
}

// Keys returns the keys in insertion order.
func (b *PriceBoard) Keys() []DisplayKey {
	out := make([]DisplayKey, len(b.keys))
	copy(out, b.keys)
	return out
}

func (b *PriceBoard) Len() int { return len(b.keys) }

// MarshalJSON writes the board as an object in key order.
func (b *PriceBoard) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range b.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(string(k))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(b.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RangeEntry is one dated price inside a range result.
type RangeEntry struct {
	Name  DisplayKey `json:"name"`
	Date  string     `json:"date"`
	Price Price      `json:"price"`
}

// RangeGroups holds range entries grouped by display key. Groups keep the
// order in which their key first appeared; entries keep upstream order.
type RangeGroups struct {
	keys   []DisplayKey
	groups map[DisplayKey][]RangeEntry
}

// Append adds e to the group named e.Name.
func (g *RangeGroups) Append(e RangeEntry) {
	if g.groups == nil {
		g.groups = make(map[DisplayKey][]RangeEntry)
	}
	if _, ok := g.groups[e.Name]; !ok {
		g.keys = append(g.keys, e.Name)
	}
	g.groups[e.Name] = append(g.groups[e.Name], e)
}

func (g *RangeGroups) Keys() []DisplayKey {
	out := make([]DisplayKey, len(g.keys))
	copy(out, g.keys)
	return out
}

func (g *RangeGroups) Entries(k DisplayKey) []RangeEntry {
	return g.groups[k]
}

// Len returns the total number of entries across all groups.
func (g *RangeGroups) Len() int {
	n := 0
	for _, entries := range g.groups {
		n += len(entries)
	}
	return n
}

// Flatten returns every entry, group by group, without re-sorting.
func (g *RangeGroups) Flatten() []RangeEntry {
	out := make([]RangeEntry, 0, g.Len())
	for _, k := range g.keys {
		out = append(out, g.groups[k]...)
	}
	return out
}
