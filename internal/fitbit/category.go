package fitbit

import (
	"sort"
	"strings"
	"time"
)

// Category names one kind of health data and doubles as its HealthRecord key.
type Category string

const (
	Profile       Category = "profile"
	SleepToday    Category = "sleep_today"
	SleepList     Category = "sleep_list"
	HeartRate     Category = "heartrate"
	Activity      Category = "activity"
	HeartZones    Category = "heart_zones"
	SkinTemp      Category = "skin_temp"
	SpO2          Category = "spo2"
	HRV           Category = "hrv"
	BreathingRate Category = "breathing_rate"
)

// DateLayout is the date format used in upstream paths.
const DateLayout = "2006-01-02"

// SleepListWindow is how far back sleep_list reaches from the reference date.
const SleepListWindow = 30 * 24 * time.Hour

var paths = map[Category]string{
	Profile:       "/1/user/-/profile.json",
	SleepToday:    "/1.2/user/-/sleep/date/{date}.json",
	SleepList:     "/1.2/user/-/sleep/list.json?afterDate={afterDate}&sort=desc&offset=0&limit=30",
	HeartRate:     "/1/user/-/activities/heart/date/{date}/1d/1min.json",
	Activity:      "/1/user/-/activities/date/{date}.json",
	HeartZones:    "/1/user/-/activities/heart/date/{date}/1d.json",
	SkinTemp:      "/1/user/-/temp/skin/date/{date}.json",
	SpO2:          "/1/user/-/spo2/date/{date}.json",
	HRV:           "/1/user/-/hrv/date/{date}.json",
	BreathingRate: "/1/user/-/br/date/{date}.json",
}

var optional = map[Category]bool{
	SkinTemp:      true,
	SpO2:          true,
	HRV:           true,
	BreathingRate: true,
}

// Core returns the categories collected on every run.
func Core() []Category {
	return []Category{Profile, SleepToday, SleepList, HeartRate, Activity, HeartZones}
}

// IsOptional reports whether c may be enabled through configuration.
func IsOptional(c Category) bool {
	return optional[c]
}

// Known reports whether c has an upstream path.
func Known(c Category) bool {
	_, ok := paths[c]
	return ok
}

// ParseOptional maps configured names to optional categories.
// Unknown and core names are returned separately so the caller can reject them.
func ParseOptional(names []string) (cats []Category, invalid []string) {
	seen := make(map[Category]bool)
	for _, n := range names {
		c := Category(strings.ToLower(strings.TrimSpace(n)))
		if c == "" {
			continue
		}
		if !IsOptional(c) {
			invalid = append(invalid, n)
			continue
		}
		if !seen[c] {
			seen[c] = true
			cats = append(cats, c)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats, invalid
}

// Params carries the date arguments substituted into a category path.
type Params struct {
	Date      time.Time
	AfterDate time.Time
}

// ParamsFor returns the params for a reference date: today and today-30d.
func ParamsFor(refDate time.Time) Params {
	return Params{Date: refDate, AfterDate: refDate.Add(-SleepListWindow)}
}

func (p Params) expand(tmpl string) string {
	return strings.NewReplacer(
		"{date}", p.Date.Format(DateLayout),
		"{afterDate}", p.AfterDate.Format(DateLayout),
	).Replace(tmpl)
}
