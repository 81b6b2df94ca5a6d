package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// PegRate is the fixed currency-board rate: 1 EUR = 1.95583 BGN.
	PegRate = "1.95583"

	hourLayout = "15:04:05"
)

var (
	hourPattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)

	pegRate      = decimal.RequireFromString(PegRate)
	pegTolerance = decimal.RequireFromString("0.01")
)

// SchemaError reports every way a payload deviates from the price schema.
type SchemaError struct {
	Violations []error
}

func (e *SchemaError) Error() string {
	if len(e.Violations) == 1 {
		return "price schema: " + e.Violations[0].Error()
	}
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Error())
	}
	return fmt.Sprintf("price schema: %d violations: %s", len(e.Violations), strings.Join(msgs, "; "))
}

func (e *SchemaError) Unwrap() []error { return e.Violations }

// BGNFromEUR converts an EUR price at the peg rate.
func BGNFromEUR(eur float64) decimal.Decimal {
	return decimal.NewFromFloat(eur).Mul(pegRate)
}

// DecodeRecords decodes a JSON array of price records. Missing fields and
// fields of the wrong JSON type are reported as a *SchemaError.
func DecodeRecords(body []byte) ([]PriceRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &SchemaError{Violations: []error{errors.New("payload is not a JSON array")}}
	}

	var records []PriceRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, &SchemaError{Violations: []error{fmt.Errorf("decode records: %w", err)}}
	}
	return records, nil
}

// Validate checks the runtime contract of a decoded payload: unique record
// ids, HH:MM:SS hour stamps and BGN prices consistent with the EUR peg.
func Validate(records []PriceRecord) error {
	var violations []error

	seen := make(map[string]int, len(records))
	for i, rec := range records {
		if first, dup := seen[rec.ID]; dup {
			violations = append(violations, fmt.Errorf("record[%d]: duplicate _id %q (first at record[%d])", i, rec.ID, first))
		} else {
			seen[rec.ID] = i
		}

		for j, h := range rec.HourlyData {
			if !validHour(h.Time) {
				violations = append(violations, fmt.Errorf("record[%d].hourlyData[%d]: time %q is not HH:MM:SS", i, j, h.Time))
			}
			if err := CheckPeg(h.Data); err != nil {
				violations = append(violations, fmt.Errorf("record[%d].hourlyData[%d]: %w", i, j, err))
			}
		}
	}

	if len(violations) > 0 {
		return &SchemaError{Violations: violations}
	}
	return nil
}

// validHour accepts only zero-padded HH:MM:SS stamps within a day.
func validHour(s string) bool {
	if !hourPattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(hourLayout, s)
	return err == nil
}

// CheckPeg reports whether bgn is within 0.01 of eur at the peg rate.
func CheckPeg(d PriceData) error {
	expected := BGNFromEUR(d.EUR)
	diff := decimal.NewFromFloat(d.BGN).Sub(expected).Abs()
	if diff.GreaterThan(pegTolerance) {
		return fmt.Errorf("bgn %v differs from eur %v x %s = %s by %s", d.BGN, d.EUR, PegRate, expected.StringFixed(5), diff.StringFixed(5))
	}
	return nil
}
