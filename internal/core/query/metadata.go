package query

import (
	"github.com/mitchellh/mapstructure"

	perr "nemseer/internal/platform/errors"
)

// Metadata describes a query for the processed cache. Datetimes are canonical
// yyyy/mm/dd HH:MM strings so equal queries compare equal however they were typed
type Metadata struct {
	RunStart        string `mapstructure:"run_start" json:"run_start"`
	RunEnd          string `mapstructure:"run_end" json:"run_end"`
	ForecastedStart string `mapstructure:"forecasted_start" json:"forecasted_start"`
	ForecastedEnd   string `mapstructure:"forecasted_end" json:"forecasted_end"`
	ForecastType    string `mapstructure:"forecast_type" json:"forecast_type"`
	Table           string `mapstructure:"table" json:"table,omitempty"`
}

// Map flattens the metadata into key/value pairs; table is omitted when empty
func (m Metadata) Map() map[string]string {
	out := map[string]string{
		"run_start":        m.RunStart,
		"run_end":          m.RunEnd,
		"forecasted_start": m.ForecastedStart,
		"forecasted_end":   m.ForecastedEnd,
		"forecast_type":    m.ForecastType,
	}
	if m.Table != "" {
		out["table"] = m.Table
	}
	return out
}

// WithTable returns a copy carrying table
func (m Metadata) WithTable(table string) Metadata {
	m.Table = table
	return m
}

// SameQuery compares every field except table
func (m Metadata) SameQuery(o Metadata) bool {
	return m.RunStart == o.RunStart &&
		m.RunEnd == o.RunEnd &&
		m.ForecastedStart == o.ForecastedStart &&
		m.ForecastedEnd == o.ForecastedEnd &&
		m.ForecastType == o.ForecastType
}

// DecodeMetadata reads metadata out of a key/value map, ignoring unrelated keys
func DecodeMetadata(kv map[string]string) (Metadata, error) {
	var m Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &m,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return Metadata{}, perr.Wrap(err, perr.ErrorCodeUnknown, "metadata decoder")
	}
	if err := dec.Decode(kv); err != nil {
		return Metadata{}, perr.Wrap(err, perr.ErrorCodeJSON, "decode query metadata")
	}
	return m, nil
}
