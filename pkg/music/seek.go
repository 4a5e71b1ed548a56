package music

import (
	"regexp"
	"strconv"
	"time"
)

var seekPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})`)

// ParseSeek turns a seek argument into a position within a track of the
// given length. It accepts whole seconds or mm:ss.
func ParseSeek(arg string, length time.Duration) (time.Duration, error) {
	if isDigits(arg) {
		secs, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || secs < 0 || secs >= int64(length/time.Second) {
			return 0, &ArgumentError{Msg: "Given time must be inside <0, song duration>."}
		}
		return time.Duration(secs) * time.Second, nil
	}

	m := seekPattern.FindStringSubmatch(arg)
	if m == nil {
		return 0, &ArgumentError{Msg: "Invalid time format. Use mm:ss. or seconds."}
	}
	minutes, _ := strconv.Atoi(m[1])
	seconds, _ := strconv.Atoi(m[2])

	if minutes > int(length/time.Minute) {
		return 0, &ArgumentError{Msg: "Minutes must be less than the song duration."}
	}
	if seconds > 59 {
		return 0, &ArgumentError{Msg: "Seconds must be less than 60."}
	}
	return time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
