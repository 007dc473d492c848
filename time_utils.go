// Package quackdb provides a pure-Go driver for DuckDB using runtime library binding.
package quackdb

import "time"

// The engine stores DATE as days since 1970-01-01, TIME as microseconds
// since midnight, and TIMESTAMP as microseconds since the Unix epoch, all
// free of time zones. Conversions here therefore always produce UTC times.

// dateFromDays converts days since the Unix epoch to a Go time.Time at
// midnight UTC.
func dateFromDays(days int32) time.Time {
	return time.Unix(int64(days)*24*60*60, 0).UTC()
}

// timeFromMicros converts microseconds since midnight to a Go time.Time on
// the epoch date.
func timeFromMicros(micros int64) time.Time {
	return time.UnixMicro(micros).UTC()
}

// microsFromTime converts a Go time.Time to microseconds since the Unix
// epoch.
func microsFromTime(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

// timestampFromMicros converts microseconds since the Unix epoch to a Go
// time.Time.
func timestampFromMicros(micros int64) time.Time {
	return time.UnixMicro(micros).UTC()
}
