package clicks

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// MaxMindLocator reads country/region/city from a local MaxMind City
// database. Lookups never fail the event; anything unresolvable comes back
// empty and the enricher maps it to "unknown".
type MaxMindLocator struct {
	reader *geoip2.Reader
}

func OpenMaxMind(path string) (*MaxMindLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geoip database %q: %w", path, err)
	}
	return &MaxMindLocator{reader: reader}, nil
}

func (l *MaxMindLocator) Locate(ip string) Location {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}
	}
	record, err := l.reader.City(parsed)
	if err != nil {
		return Location{}
	}

	loc := Location{
		Country: record.Country.Names["en"],
		City:    record.City.Names["en"],
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].Names["en"]
	}
	return loc
}

func (l *MaxMindLocator) Close() error {
	return l.reader.Close()
}
