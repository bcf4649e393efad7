package utils

import (
	"time"
)

// SeoulLocation is the timezone of the Korean exchange.
var SeoulLocation *time.Location

func init() {
	var err error
	SeoulLocation, err = time.LoadLocation("Asia/Seoul")
	if err != nil {
		// Fallback to UTC+9
		SeoulLocation = time.FixedZone("KST", 9*60*60)
	}
}

// Today returns now as a YYYY-MM-DD calendar day in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = SeoulLocation
	}
	return now.In(loc).Format("2006-01-02")
}

// Routine is the closing-trade routine reminder appended to summaries.
const Routine = "[루틴] 15:59 시간외 잔량 체크 → 익일 09:00~09:05 전량 청산(원칙)"
