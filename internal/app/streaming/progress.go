package streaming

import (
	"fmt"
	"regexp"
	"strconv"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// Status is the progress state of one milestone. It only moves forward.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

func (s Status) rank() int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusDone:
		return 2
	default:
		return 0
	}
}

// Milestone ids, in display order.
const (
	MilestoneTravel      = "travel"
	MilestoneDestination = "destination"
	MilestonePlan        = "plan"
)

const (
	labelTravel      = "Analyzing travel logistics..."
	labelDestination = "Gathering destination info (hotels, best time)..."
	labelHotels      = "Gathering destination info (found hotels!)"
	labelPlan        = "Building your day-by-day plan..."
	labelPlanDay     = "Building your plan... (Day %d)"
)

// Milestone is one user-facing progress stage.
type Milestone struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status Status `json:"status"`
	// Day is the highest day number seen in the stream, plan stage only.
	Day int `json:"day,omitempty"`
}

// Milestones is the fixed, ordered set shown while an itinerary streams in.
// It is a value type: Advance and Close return new copies.
type Milestones [3]Milestone

// InitialMilestones returns the set with every stage pending.
func InitialMilestones() Milestones {
	return Milestones{
		{ID: MilestoneTravel, Label: labelTravel, Status: StatusPending},
		{ID: MilestoneDestination, Label: labelDestination, Status: StatusPending},
		{ID: MilestonePlan, Label: labelPlan, Status: StatusPending},
	}
}

const (
	markerTravel = iota
	markerDestination
	markerHotels
	markerDays
)

// Pattern order must match the marker constants above.
var markerMatcher = newMarkerMatcher()

func newMarkerMatcher() ahocorasick.AhoCorasick {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: false,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
		DFA:                  true,
	})
	return builder.Build([]string{
		`"travelAnalysis"`,
		`"destinationSummary"`,
		`"hotelSuggestions"`,
		`"days"`,
	})
}

var dayNumberRe = regexp.MustCompile(`"day"\s*:\s*(\d+)`)

// markerOverlap is how much already-scanned text is rescanned with each new
// chunk. It covers the longest marker and a "day": N match with ordinary spacing.
const markerOverlap = 64

// Advance derives the next milestone set from the raw, possibly invalid,
// buffer. It never fails: missing markers leave stages as they are, and no
// stage ever moves backwards or loses a higher day count.
func Advance(current Milestones, buffer string) Milestones {
	next := current

	var seen [4]bool
	for _, m := range markerMatcher.FindAll(buffer) {
		if p := m.Pattern(); p >= 0 && p < len(seen) {
			seen[p] = true
		}
	}
	day := highestDay(buffer)

	reached := -1
	switch {
	case seen[markerDays] || day > 0:
		reached = 2
	case seen[markerDestination] || seen[markerHotels]:
		reached = 1
	case seen[markerTravel]:
		reached = 0
	}

	for i := range next {
		switch {
		case i < reached:
			next[i].Status = promote(next[i].Status, StatusDone)
		case i == reached:
			next[i].Status = promote(next[i].Status, StatusInProgress)
		}
	}

	if seen[markerHotels] {
		next[1].Label = labelHotels
	}
	if day > next[2].Day {
		next[2].Day = day
		next[2].Label = fmt.Sprintf(labelPlanDay, day)
	}
	return next
}

// Close marks every stage done. Used when the stream ends, whatever the outcome.
func Close(current Milestones) Milestones {
	next := current
	for i := range next {
		next[i].Status = StatusDone
	}
	return next
}

// AllDone reports whether every stage is done.
func (m Milestones) AllDone() bool {
	for _, s := range m {
		if s.Status != StatusDone {
			return false
		}
	}
	return true
}

func promote(from, to Status) Status {
	if to.rank() > from.rank() {
		return to
	}
	return from
}

func highestDay(buffer string) int {
	highest := 0
	for _, m := range dayNumberRe.FindAllStringSubmatch(buffer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}
