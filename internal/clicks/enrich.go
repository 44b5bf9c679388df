package clicks

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"

	"github.com/balesniy/reduced.to/internal"
)

// GeoLocator resolves an IP address to a location. Fields it cannot resolve
// stay empty and map to the unknown category.
type GeoLocator interface {
	Locate(ip string) Location
}

type Location struct {
	Country string
	Region  string
	City    string
}

// Enrich turns a raw event into a click fact: user agent into device/os/
// browser, IP into geo, and a fresh synthetic id. It is pure over its inputs;
// malformed or missing values become the literal "unknown" category instead
// of failing the event.
func Enrich(e Event, geo GeoLocator) internal.ClickFact {
	fact := internal.ClickFact{
		ID:        uuid.New(),
		LinkKey:   e.LinkKey,
		Timestamp: e.Timestamp,
		Referer:   e.Referer,
	}
	fact.Device, fact.OS, fact.Browser = parseUserAgent(e.UserAgent)

	loc := Location{}
	if geo != nil && e.IPAddress != "" {
		loc = geo.Locate(e.IPAddress)
	}
	fact.Country = orUnknown(loc.Country)
	fact.Region = orUnknown(loc.Region)
	fact.City = orUnknown(loc.City)
	return fact
}

func parseUserAgent(raw string) (device, os, browser string) {
	if strings.TrimSpace(raw) == "" {
		return internal.UnknownValue, internal.UnknownValue, internal.UnknownValue
	}
	ua := useragent.Parse(raw)

	switch {
	case ua.Bot:
		device = "bot"
	case ua.Mobile:
		device = "mobile"
	case ua.Tablet:
		device = "tablet"
	case ua.Desktop:
		device = "desktop"
	default:
		device = internal.UnknownValue
	}
	return device, orUnknown(ua.OS), orUnknown(ua.Name)
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return internal.UnknownValue
	}
	return v
}
