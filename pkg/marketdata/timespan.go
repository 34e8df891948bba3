package marketdata

import (
	"sort"

	"github.com/polygon-io/client-go/rest/models"
)

// Timespan is a bar resolution. Strategy data blocks use the unit names (day, hour, ...);
// the short forms (1m, 4h, ...) carry their own multiplier.
type Timespan string

const (
	TimespanSecond Timespan = "second"
	TimespanMinute Timespan = "minute"
	TimespanHour   Timespan = "hour"
	TimespanDay    Timespan = "day"
	TimespanWeek   Timespan = "week"
	TimespanMonth  Timespan = "month"

	TimespanOneSecond      Timespan = "1s"
	TimespanOneMinute      Timespan = "1m"
	TimespanThreeMinutes   Timespan = "3m"
	TimespanFiveMinutes    Timespan = "5m"
	TimespanFifteenMinutes Timespan = "15m"
	TimespanThirtyMinutes  Timespan = "30m"
	TimespanOneHour        Timespan = "1h"
	TimespanTwoHours       Timespan = "2h"
	TimespanFourHours      Timespan = "4h"
	TimespanSixHours       Timespan = "6h"
	TimespanEightHours     Timespan = "8h"
	TimespanTwelveHours    Timespan = "12h"
	TimespanOneDay         Timespan = "1d"
	TimespanThreeDays      Timespan = "3d"
	TimespanOneWeek        Timespan = "1w"
	TimespanOneMonth       Timespan = "1M"
)

type resolution struct {
	multiplier int
	unit       models.Timespan
}

var resolutions = map[Timespan]resolution{
	TimespanSecond:         {1, models.Second},
	TimespanMinute:         {1, models.Minute},
	TimespanHour:           {1, models.Hour},
	TimespanDay:            {1, models.Day},
	TimespanWeek:           {1, models.Week},
	TimespanMonth:          {1, models.Month},
	TimespanOneSecond:      {1, models.Second},
	TimespanOneMinute:      {1, models.Minute},
	TimespanThreeMinutes:   {3, models.Minute},
	TimespanFiveMinutes:    {5, models.Minute},
	TimespanFifteenMinutes: {15, models.Minute},
	TimespanThirtyMinutes:  {30, models.Minute},
	TimespanOneHour:        {1, models.Hour},
	TimespanTwoHours:       {2, models.Hour},
	TimespanFourHours:      {4, models.Hour},
	TimespanSixHours:       {6, models.Hour},
	TimespanEightHours:     {8, models.Hour},
	TimespanTwelveHours:    {12, models.Hour},
	TimespanOneDay:         {1, models.Day},
	TimespanThreeDays:      {3, models.Day},
	TimespanOneWeek:        {1, models.Week},
	TimespanOneMonth:       {1, models.Month},
}

// IsValid reports whether t is a known timespan.
func (t Timespan) IsValid() bool {
	_, ok := resolutions[t]

	return ok
}

// Multiplier returns the number of units in one bar. Unknown timespans count as 1.
func (t Timespan) Multiplier() int {
	if r, ok := resolutions[t]; ok {
		return r.multiplier
	}

	return 1
}

// Timespan returns the polygon unit of t. Unknown timespans are daily.
func (t Timespan) Timespan() models.Timespan {
	if r, ok := resolutions[t]; ok {
		return r.unit
	}

	return models.Day
}

// Timespans returns every known timespan, sorted.
func Timespans() []string {
	names := make([]string, 0, len(resolutions))
	for t := range resolutions {
		names = append(names, string(t))
	}

	sort.Strings(names)

	return names
}
