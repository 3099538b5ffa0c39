package session

import (
	"sort"
	"time"

	"orbsim/internal/model"
)

// Regular trading hours: 09:30:00 through 16:00:00 inclusive of the
// 16:00 mark, which carries the end-of-day exit price.
const (
	openHour    = 9
	openMinute  = 30
	closeHour   = 16
	closeMinute = 0
)

// Frame normalizes raw intraday bars to the reference zone, keeps only
// regular-hours bars and groups them into per-symbol, per-date sessions
// ordered by timestamp. It is a pure transform; bars outside the session
// window are dropped silently.
func Frame(bars []model.Bar, loc *time.Location) []model.Session {
	byKey := make(map[string][]model.Bar)
	for _, b := range bars {
		b.Time = b.Time.In(loc)
		if !inRTH(b.Time) {
			continue
		}
		y, m, d := b.Time.Date()
		key := b.Symbol + "|" + time.Date(y, m, d, 0, 0, 0, 0, loc).Format("2006-01-02")
		byKey[key] = append(byKey[key], b)
	}

	sessions := make([]model.Session, 0, len(byKey))
	for _, group := range byKey {
		sort.Slice(group, func(i, j int) bool { return group[i].Time.Before(group[j].Time) })
		y, m, d := group[0].Time.Date()
		sessions = append(sessions, model.Session{
			Symbol: group[0].Symbol,
			Date:   time.Date(y, m, d, 0, 0, 0, 0, loc),
			Bars:   group,
		})
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].Date.Equal(sessions[j].Date) {
			return sessions[i].Date.Before(sessions[j].Date)
		}
		return sessions[i].Symbol < sessions[j].Symbol
	})
	return sessions
}

func inRTH(t time.Time) bool {
	h, m := t.Hour(), t.Minute()
	if h < openHour || (h == openHour && m < openMinute) {
		return false
	}
	if h > closeHour || (h == closeHour && m > closeMinute) {
		return false
	}
	return true
}

// OpeningRange computes the opening-range candle from the first n bars
// of a session. It returns false when fewer than n bars exist; such a
// session is skipped, not an error.
func OpeningRange(s model.Session, n int) (model.OpeningRange, bool) {
	if len(s.Bars) < n {
		return model.OpeningRange{}, false
	}
	or := model.OpeningRange{
		Open:  s.Bars[0].Open,
		Close: s.Bars[n-1].Close,
		High:  s.Bars[0].High,
		Low:   s.Bars[0].Low,
	}
	for _, b := range s.Bars[1:n] {
		if b.High > or.High {
			or.High = b.High
		}
		if b.Low < or.Low {
			or.Low = b.Low
		}
	}
	return or, true
}

// Direction classifies the opening-range bias: long when the range
// candle closed above its open, short when below, none on an exact
// doji. Exact equality is the tie-break; there is no tolerance band.
func Direction(or model.OpeningRange) model.Side {
	switch {
	case or.Close > or.Open:
		return model.SideLong
	case or.Close < or.Open:
		return model.SideShort
	default:
		return model.SideNone
	}
}
