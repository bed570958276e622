package analytics

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// GeoLocator maps an IP address to a country and city
type GeoLocator interface {
	Locate(ip string) (country, city string, ok bool)
}

// GeoIP looks addresses up in a MaxMind GeoLite2/GeoIP2 City database
type GeoIP struct {
	reader *geoip2.Reader
}

// OpenGeoIP opens the .mmdb file at path
func OpenGeoIP(path string) (*GeoIP, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &GeoIP{reader: reader}, nil
}

// Locate returns English names, falling back to the ISO country code
func (g *GeoIP) Locate(ip string) (string, string, bool) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", "", false
	}

	record, err := g.reader.City(parsed)
	if err != nil {
		return "", "", false
	}

	country := record.Country.Names["en"]
	if country == "" {
		country = record.Country.IsoCode
	}
	city := record.City.Names["en"]
	if country == "" && city == "" {
		return "", "", false
	}
	return country, city, true
}

func (g *GeoIP) Close() error {
	return g.reader.Close()
}
