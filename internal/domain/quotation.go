package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Quotation is the broker's fixed-point number: integer units plus a
// fractional part expressed in billionths. The REST gateway follows the
// proto3 JSON mapping, so units arrives as a JSON string while nano is a
// plain number.
type Quotation struct {
	Units int64 `json:"units"`
	Nano  int32 `json:"nano"`
}

type quotationWire struct {
	Units json.Number `json:"units"`
	Nano  json.Number `json:"nano"`
}

// UnmarshalJSON accepts units/nano as either JSON strings or numbers.
func (q *Quotation) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*q = Quotation{}
		return nil
	}

	var w quotationWire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return fmt.Errorf("decoding quotation: %w", err)
	}

	var err error
	q.Units, q.Nano = 0, 0
	if w.Units != "" {
		q.Units, err = strconv.ParseInt(w.Units.String(), 10, 64)
		if err != nil {
			return fmt.Errorf("parsing quotation units %q: %w", w.Units, err)
		}
	}
	if w.Nano != "" {
		nano, err := strconv.ParseInt(w.Nano.String(), 10, 32)
		if err != nil {
			return fmt.Errorf("parsing quotation nano %q: %w", w.Nano, err)
		}
		q.Nano = int32(nano)
	}
	return nil
}

// MarshalJSON emits units as a string, matching what the gateway expects
// for int64 fields.
func (q Quotation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Units string `json:"units"`
		Nano  int32  `json:"nano"`
	}{
		Units: strconv.FormatInt(q.Units, 10),
		Nano:  q.Nano,
	})
}

// IsZero reports whether both parts are zero. The broker uses an all-zero
// quotation to mean "no price", not a zero-valued quote.
func (q Quotation) IsZero() bool {
	return q.Units == 0 && q.Nano == 0
}

// Decimal converts the quotation to an exact decimal value.
func (q Quotation) Decimal() decimal.Decimal {
	return decimal.New(q.Units, 0).Add(decimal.New(int64(q.Nano), -9))
}

// Float64 converts the quotation to a float, with the all-zero sentinel
// mapping to 0.0.
func (q Quotation) Float64() float64 {
	return float64(q.Units) + float64(q.Nano)/1e9
}

// QuotationFromDecimal splits a decimal value into units and nano parts.
func QuotationFromDecimal(d decimal.Decimal) Quotation {
	units := d.IntPart()
	nano := d.Sub(decimal.New(units, 0)).Mul(decimal.New(1, 9)).IntPart()
	return Quotation{Units: units, Nano: int32(nano)}
}

// QuotationFromFloat converts a float price into the broker's fixed-point
// representation via decimal to avoid binary rounding of the nano part.
func QuotationFromFloat(v float64) Quotation {
	return QuotationFromDecimal(decimal.NewFromFloat(v))
}

// MoneyValue is a Quotation tagged with its ISO currency code.
type MoneyValue struct {
	Quotation
	Currency string `json:"currency"`
}

// UnmarshalJSON decodes the embedded quotation alongside the currency tag.
func (m *MoneyValue) UnmarshalJSON(data []byte) error {
	if err := m.Quotation.UnmarshalJSON(data); err != nil {
		return err
	}
	var cur struct {
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &cur); err != nil {
		return err
	}
	m.Currency = cur.Currency
	return nil
}

// MarshalJSON emits the quotation fields plus the currency tag.
func (m MoneyValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Units    string `json:"units"`
		Nano     int32  `json:"nano"`
		Currency string `json:"currency"`
	}{
		Units:    strconv.FormatInt(m.Units, 10),
		Nano:     m.Nano,
		Currency: m.Currency,
	})
}
