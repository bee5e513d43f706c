package bugreport

import (
	"strings"

	"github.com/setevik/droidtriage/internal/item"
	"github.com/setevik/droidtriage/internal/router"
	"github.com/setevik/droidtriage/internal/subparse"
)

const (
	batteryService = `DUMP OF SERVICE (?:batteryinfo|batterystats):`
	otherService   = `DUMP OF SERVICE .*`
)

// ParseDumpsys parses the output of a full dumpsys run. Only the battery
// service is parsed; it returns nil when lines are all blank.
func ParseDumpsys(lines []string) *item.Dumpsys {
	r := router.New()
	battery := router.Add(r, batteryService, subparse.ParseBatteryInfo)
	router.Add(r, otherService, router.Discard)

	var ds *item.Dumpsys
	for _, l := range lines {
		if ds == nil && strings.TrimSpace(l) != "" {
			ds = &item.Dumpsys{}
		}
		r.Feed(l)
	}
	r.Commit()

	if ds != nil {
		ds.BatteryInfo, _ = battery.Result()
	}
	return ds
}
