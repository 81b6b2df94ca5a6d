package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Domain contains the price schema served by the remote endpoint.

// PriceRecord is one calendar day of prices. HourlyData keeps the order in
// which the hours were captured.
type PriceRecord struct {
	ID         string        `json:"_id"`
	Date       string        `json:"date"`
	Version    int           `json:"__v"`
	HourlyData []HourlyEntry `json:"hourlyData"`
}

// HourlyEntry is a single hour snapshot within a PriceRecord.
type HourlyEntry struct {
	ID   string    `json:"_id"`
	Time string    `json:"time"`
	Data PriceData `json:"data"`
}

// PriceData carries the EUR price, the BGN price derived from it, and the traded volume.
type PriceData struct {
	EUR    float64 `json:"eur"`
	BGN    float64 `json:"bgn"`
	Volume float64 `json:"volume"`
}

// HourAt returns the hourly entry captured at the given HH:MM:SS time.
func (r PriceRecord) HourAt(t string) (HourlyEntry, bool) {
	for _, h := range r.HourlyData {
		if h.Time == t {
			return h, true
		}
	}
	return HourlyEntry{}, false
}

func (r *PriceRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         *string        `json:"_id"`
		Date       *string        `json:"date"`
		Version    *float64       `json:"__v"`
		HourlyData *[]HourlyEntry `json:"hourlyData"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.ID == nil:
		return errors.New("record: missing _id")
	case raw.Date == nil:
		return errors.New("record: missing date")
	case raw.Version == nil:
		return errors.New("record: missing __v")
	case raw.HourlyData == nil:
		return errors.New("record: missing hourlyData")
	}
	version := *raw.Version
	if version != math.Trunc(version) || math.Abs(version) > math.MaxInt32 {
		return fmt.Errorf("record: __v %v is not an integer", version)
	}
	*r = PriceRecord{
		ID:         *raw.ID,
		Date:       *raw.Date,
		Version:    int(version),
		HourlyData: *raw.HourlyData,
	}
	return nil
}

func (h *HourlyEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   *string    `json:"_id"`
		Time *string    `json:"time"`
		Data *PriceData `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.ID == nil:
		return errors.New("hourly entry: missing _id")
	case raw.Time == nil:
		return errors.New("hourly entry: missing time")
	case raw.Data == nil:
		return errors.New("hourly entry: missing data")
	}
	*h = HourlyEntry{ID: *raw.ID, Time: *raw.Time, Data: *raw.Data}
	return nil
}

func (p *PriceData) UnmarshalJSON(data []byte) error {
	var raw struct {
		EUR    *float64 `json:"eur"`
		BGN    *float64 `json:"bgn"`
		Volume *float64 `json:"volume"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.EUR == nil:
		return errors.New("price data: missing eur")
	case raw.BGN == nil:
		return errors.New("price data: missing bgn")
	case raw.Volume == nil:
		return errors.New("price data: missing volume")
	}
	*p = PriceData{EUR: *raw.EUR, BGN: *raw.BGN, Volume: *raw.Volume}
	return nil
}
