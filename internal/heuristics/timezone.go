package heuristics

import (
	"time"
	_ "time/tzdata"
)

// Location is the wall-clock zone every sailing is listed in
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Los_Angeles")
	if err != nil {
		panic(err)
	}
}
