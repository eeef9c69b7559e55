// Package validity enforces the per forecast type cadence and horizon rules and
// derives the widest valid run window for a forecasted window
package validity

import (
	"time"

	"nemseer/internal/core/forecast"
	perr "nemseer/internal/platform/errors"
	ptime "nemseer/internal/platform/time"
)

// Window is an inclusive pair of run and forecasted datetimes
type Window struct {
	RunStart        time.Time
	RunEnd          time.Time
	ForecastedStart time.Time
	ForecastedEnd   time.Time
}

// Rule checks one forecast type
type Rule func(w Window) error

var rules = map[forecast.Type]Rule{
	forecast.P5MIN:       p5min,
	forecast.PREDISPATCH: predispatch,
	forecast.PDPASA:      predispatch,
	forecast.STPASA:      stpasa,
	forecast.MTPASA:      mtpasa,
}

// Validate applies the rule for t to the window
func Validate(t forecast.Type, w Window) error {
	rule, ok := rules[t]
	if !ok {
		return perr.WithField(perr.Validationf("forecast type %q should be one of %s", t, forecast.Names()), "forecast_type")
	}
	return rule(w)
}

// LastMarketDayEnd returns 04:00 ending the last trading day whose bid band
// prices have closed by t (12:30 closing, published with the 13:00 run)
func LastMarketDayEnd(t time.Time) time.Time {
	days := 1
	if t.Hour() >= 13 {
		days = 2
	}
	return ptime.AtClock(t.AddDate(0, 0, days), 4, 0)
}

func p5min(w Window) error {
	for _, v := range []time.Time{w.RunStart, w.RunEnd, w.ForecastedStart, w.ForecastedEnd} {
		if v.Minute()%5 != 0 {
			return invalid("P5MIN is run every 5 minutes. Minutes in datetime inputs should be a multiple of 5", "")
		}
	}
	if allowed := w.RunEnd.Add(55 * time.Minute); w.ForecastedEnd.After(allowed) {
		return invalid("For P5MIN, forecasted_end must be within 55 minutes of run_end. This corresponds to "+allowed.Format(forecast.DatetimeFormat)+" for the provided run_end", "forecasted_end")
	}
	return nil
}

func predispatch(w Window) error {
	for _, v := range []time.Time{w.RunStart, w.RunEnd, w.ForecastedStart, w.ForecastedEnd} {
		if !halfHourly(v) {
			return invalid("PREDISPATCH/PDPASA is run every 30 minutes. Minutes in datetime inputs should be 0 or 30", "")
		}
	}
	if allowed := LastMarketDayEnd(w.RunEnd); w.ForecastedEnd.After(allowed) {
		return invalid("For PREDISPATCH/PDPASA, forecasted_end must be no later than "+allowed.Format(forecast.DatetimeFormat)+" based on the supplied run_end", "forecasted_end")
	}
	return nil
}

func stpasa(w Window) error {
	if w.RunStart.Minute() != 0 || w.RunEnd.Minute() != 0 {
		return invalid("ST PASA run_start and run_end must be on the hour", "run_start")
	}
	if !halfHourly(w.ForecastedStart) || !halfHourly(w.ForecastedEnd) {
		return invalid("ST PASA forecasts are provided for every half hour in the forecast period. Minutes in forecasted_start and forecasted_end should be 0 or 30", "forecasted_start")
	}
	if earliest := LastMarketDayEnd(w.RunStart).Add(30 * time.Minute); w.ForecastedStart.Before(earliest) {
		return invalid("For ST PASA, forecasted_start must be no earlier than "+earliest.Format(forecast.DatetimeFormat)+" based on the supplied run_start", "forecasted_start")
	}
	if latest := LastMarketDayEnd(w.RunEnd).AddDate(0, 0, 6); w.ForecastedEnd.After(latest) {
		return invalid("For ST PASA, forecasted_end must be no later than "+latest.Format(forecast.DatetimeFormat)+" based on the supplied run_end", "forecasted_end")
	}
	return nil
}

func mtpasa(w Window) error {
	for _, v := range []time.Time{w.ForecastedStart, w.ForecastedEnd} {
		if v.Hour() != 0 || v.Minute() != 0 {
			return invalid("MT PASA forecasts are daily. forecasted_start and forecasted_end should be at 00:00", "forecasted_start")
		}
	}
	if latest := ptime.AddYears(w.RunEnd, 2).AddDate(0, 0, 16); w.ForecastedEnd.After(latest) {
		return invalid("For MT PASA, forecasted_end must be no later than "+latest.Format(forecast.DatetimeFormat)+" based on the supplied run_end", "forecasted_end")
	}
	return nil
}

func halfHourly(t time.Time) bool { return t.Minute() == 0 || t.Minute() == 30 }

func invalid(msg, field string) error {
	err := perr.New(perr.ErrorCodeValidation, msg)
	if field != "" {
		err = perr.WithField(err, field)
	}
	return err
}
