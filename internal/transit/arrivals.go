package transit

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Assemble converts raw arrival predictions into Arrivals ordered by time to station.
// Values are copied verbatim, including zero and negative times. Predictions with equal
// times keep their upstream order.
func Assemble(raw []RawArrivalRecord) []Arrival {
	arrivals := make([]Arrival, 0, len(raw))
	for _, r := range raw {
		arrivals = append(arrivals, Arrival{
			ID:            r.ID,
			LineName:      r.LineName,
			TimeToStation: r.TimeToStation,
		})
	}

	slices.SortStableFunc(arrivals, func(a, b Arrival) int {
		return cmp.Compare(a.TimeToStation, b.TimeToStation)
	})

	return arrivals
}

// humanizeEpoch anchors relative-time formatting; only the difference matters.
var humanizeEpoch = time.Unix(0, 0)

// maxHumanizedSeconds is the largest time to station representable as a time.Duration.
const maxHumanizedSeconds = math.MaxInt64 / int64(time.Second)

// HumanizeTimeToStation renders seconds until arrival as a coarse duration such as
// "now", "45 seconds", "1 minute" or "5 minutes".
// Negative values render as "now" so larger inputs never read as sooner.
func HumanizeTimeToStation(seconds int) string {
	secs := min(max(int64(seconds), 0), maxHumanizedSeconds)
	d := time.Duration(secs) * time.Second
	return strings.TrimSpace(humanize.RelTime(humanizeEpoch, humanizeEpoch.Add(d), "", ""))
}

// Humanized returns the arrival's time to station as display text.
func (a Arrival) Humanized() string {
	return HumanizeTimeToStation(a.TimeToStation)
}
