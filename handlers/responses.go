package handlers

import (
	"fmt"
	"time"

	"github.com/giygas/event-counter-api/convert"
	"github.com/giygas/event-counter-api/counter"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// countResponse is a windowed count; times are epoch milliseconds and the
// window is in milliseconds
type countResponse struct {
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	TimePeriod int64  `json:"timePeriod"`
	Now        int64  `json:"now"`
	FromNow    bool   `json:"fromNow"`
	Oldest     int64  `json:"oldest"`
	Newest     int64  `json:"newest,omitempty"`
}

type formattedResponse struct {
	Msg    string        `json:"msg"`
	Data   countResponse `json:"data"`
	Events []int64       `json:"events"`
}

type eventCountResponse struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

type counterStatsResponse struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

type deleteResponse struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

type deleteAllResponse struct {
	Deleted int `json:"deleted"`
}

type healthResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
}

func epochMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func newCountResponse(c counter.Count) countResponse {
	return countResponse{
		Name:       c.Name,
		Qty:        c.Qty,
		TimePeriod: c.TimePeriod.Milliseconds(),
		Now:        epochMillis(c.Now),
		FromNow:    c.FromNow,
		Oldest:     epochMillis(c.Oldest),
		Newest:     epochMillis(c.Newest),
	}
}

func newFormattedResponse(c counter.Count, events []time.Time) formattedResponse {
	millis := make([]int64, len(events))
	for i, e := range events {
		millis[i] = e.UnixMilli()
	}
	return formattedResponse{
		Msg:    formatCountMessage(c),
		Data:   newCountResponse(c),
		Events: millis,
	}
}

// formatCountMessage renders a count for humans. The measuring point is now
// for fromNow queries and the newest event otherwise.
func formatCountMessage(c counter.Count) string {
	from := c.Now
	if !c.FromNow {
		from = c.Newest
	}
	return fmt.Sprintf("'%s' %d events occurred during the preceding %s measured from %s. The oldest event in that time period occurred at %s and the newest at %s",
		c.Name,
		c.Qty,
		convert.FormatHMS(c.TimePeriod.Milliseconds()),
		timestampOrNever(from),
		timestampOrNever(c.Oldest),
		timestampOrNever(c.Newest),
	)
}

func timestampOrNever(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return convert.FormatTimestamp(t)
}
