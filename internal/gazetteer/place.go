// Package gazetteer downloads, caches and parses the GeoNames reference
// dataset used for reverse geocoding. Artifacts are cached per country
// on local disk and replaced wholesale on a forced refresh.
package gazetteer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Place is one gazetteer entry, read-only after load.
type Place struct {
	Name        string
	Lat         float64
	Lon         float64
	CountryCode string
	Admin1      string
	Admin2      string
	Timezone    string
}

// Country is one row of countryInfo.txt.
type Country struct {
	IsoCode   string
	Name      string
	Continent string
}

var validContinents = map[string]bool{
	"AF": true, "AS": true, "EU": true, "NA": true,
	"OC": true, "SA": true, "AN": true,
}

// The GeoNames dump is tab-separated. Field offsets per
// https://download.geonames.org/export/dump/readme.txt.
const (
	fieldName         = 1
	fieldASCIIName    = 2
	fieldLat          = 4
	fieldLon          = 5
	fieldFeatureClass = 6
	fieldCountryCode  = 8
	fieldAdmin1       = 10
	fieldAdmin2       = 11
	fieldTimezone     = 17
	minPlaceFields    = 18
)

// parsePlaces reads a per-country GeoNames dump, keeping only populated
// places (feature class P). The UTF-8 name is preferred, falling back
// to the ASCII transliteration. Rows that cannot be parsed are skipped,
// not fatal: one bad row should not discard a country.
func parsePlaces(r io.Reader) ([]Place, error) {
	var places []Place

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < minPlaceFields {
			continue
		}
		if fields[fieldFeatureClass] != "P" {
			continue
		}

		name := fields[fieldName]
		if name == "" {
			name = fields[fieldASCIIName]
		}
		countryCode := fields[fieldCountryCode]
		if name == "" || countryCode == "" {
			continue
		}

		lat, latErr := strconv.ParseFloat(fields[fieldLat], 64)
		lon, lonErr := strconv.ParseFloat(fields[fieldLon], 64)
		if latErr != nil || lonErr != nil {
			continue
		}

		places = append(places, Place{
			Name:        name,
			Lat:         lat,
			Lon:         lon,
			CountryCode: countryCode,
			Admin1:      fields[fieldAdmin1],
			Admin2:      fields[fieldAdmin2],
			Timezone:    fields[fieldTimezone],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading places: %w", err)
	}

	return places, nil
}

// parseCountries reads countryInfo.txt. Comment lines start with '#'.
func parseCountries(r io.Reader) (map[string]Country, error) {
	countries := make(map[string]Country)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 9 {
			continue
		}
		isoCode, name, continent := fields[0], fields[4], fields[8]
		if isoCode == "" || name == "" || !validContinents[continent] {
			continue
		}
		countries[isoCode] = Country{IsoCode: isoCode, Name: name, Continent: continent}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading countries: %w", err)
	}

	return countries, nil
}

// parseAdminCodes reads admin1CodesASCII.txt or admin2Codes.txt into a
// map of dotted key ("GB.ENG", "GB.ENG.J9") to subdivision name,
// restricted to the requested country codes.
func parseAdminCodes(r io.Reader, include func(isoCode string) bool) (map[string]string, error) {
	codes := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 2 {
			continue
		}
		key, name := fields[0], fields[1]
		if len(key) < 2 || name == "" {
			continue
		}
		if !include(key[0:2]) {
			continue
		}
		codes[key] = name
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading admin codes: %w", err)
	}

	return codes, nil
}
