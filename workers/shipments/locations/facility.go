package locations

import (
	"regexp"
	"strings"
)

const (
	distributionCenter        = "DISTRIBUTION CENTER"
	networkDistributionCenter = "NETWORK DISTRIBUTION CENTER"
	internationalMarker       = "INTERNATIONAL"
)

var areaRegionPattern = regexp.MustCompile(`^(.*\S)\s+([A-Z]{2})$`)

// Facility is a carrier distribution center parsed from a free-text event
// location such as "ATLANTA-PEACHTREE GA DISTRIBUTION CENTER".
type Facility struct {
	Label         string
	Area          string
	City          string
	State         string
	International bool
}

// ParseFacility reports whether label names a distribution center and, if
// so, splits it into its area, city candidate and region. state is used when
// the label carries no trailing region code.
func ParseFacility(label, state string) (Facility, bool) {
	upper := strings.ToUpper(strings.Join(strings.Fields(label), " "))
	if !strings.Contains(upper, distributionCenter) {
		return Facility{}, false
	}

	f := Facility{Label: label}
	if strings.Contains(upper, internationalMarker) {
		f.International = true
		return f, true
	}

	suffix := distributionCenter
	if strings.Contains(upper, networkDistributionCenter) {
		suffix = networkDistributionCenter
	}
	area, _, _ := strings.Cut(upper, suffix)
	f.Area = strings.TrimSpace(area)
	f.City = f.Area
	f.State = strings.ToUpper(strings.TrimSpace(state))

	if m := areaRegionPattern.FindStringSubmatch(f.Area); m != nil {
		f.City = m[1]
		f.State = m[2]
	}
	return f, true
}
