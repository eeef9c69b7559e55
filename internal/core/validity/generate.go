package validity

import (
	"time"

	"nemseer/internal/core/forecast"
	perr "nemseer/internal/platform/errors"
	ptime "nemseer/internal/platform/time"
)

type generator func(fs, fe time.Time) (time.Time, time.Time)

var generators = map[forecast.Type]generator{
	forecast.P5MIN: func(fs, fe time.Time) (time.Time, time.Time) {
		return fs.Add(-55 * time.Minute), fe
	},
	forecast.PREDISPATCH: func(fs, fe time.Time) (time.Time, time.Time) {
		return earliestRunAt(fs, 13), fe
	},
	forecast.PDPASA: func(fs, fe time.Time) (time.Time, time.Time) {
		return earliestRunAt(fs, 13), fe
	},
	forecast.STPASA: func(fs, fe time.Time) (time.Time, time.Time) {
		return earliestRunAt(fs, 14).AddDate(0, 0, -6), earliestRunAt(fe, 14)
	},
	forecast.MTPASA: func(fs, fe time.Time) (time.Time, time.Time) {
		return ptime.AddYears(fs, -2).AddDate(0, 0, -16), fe.AddDate(0, 0, -6)
	},
}

// GenerateRunWindow returns the widest run window whose forecasts cover
// [fs, fe]. The result is validated before it is returned
func GenerateRunWindow(t forecast.Type, fs, fe time.Time) (time.Time, time.Time, error) {
	gen, ok := generators[t]
	if !ok {
		return time.Time{}, time.Time{}, perr.WithField(perr.Validationf("forecast type %q should be one of %s", t, forecast.Names()), "forecast_type")
	}
	if fs.After(fe) {
		return time.Time{}, time.Time{}, perr.WithField(perr.Validationf("Forecasted end datetime must be greater than or equal to forecasted start datetime."), "forecasted_end")
	}
	rs, re := gen(fs, fe)
	if err := Validate(t, Window{RunStart: rs, RunEnd: re, ForecastedStart: fs, ForecastedEnd: fe}); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return rs, re, nil
}

// earliestRunAt returns the run at hh:00 on the trading day before the one
// containing t. Trading days roll over at 04:00
func earliestRunAt(t time.Time, hh int) time.Time {
	days := -2
	if t.Hour() > 4 || (t.Hour() == 4 && t.Minute() > 0) {
		days = -1
	}
	return ptime.AtClock(t.AddDate(0, 0, days), hh, 0)
}
