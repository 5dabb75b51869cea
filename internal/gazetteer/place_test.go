package gazetteer

import (
	"strings"
	"testing"
)

// placeLine builds one GeoNames dump row. The dump has 19 tab-separated
// fields; only the ones the parser consumes are populated.
func placeLine(name, asciiName, lat, lon, fclass, country, admin1, admin2, tz string) string {
	fields := make([]string, 19)
	fields[fieldName] = name
	fields[fieldASCIIName] = asciiName
	fields[fieldLat] = lat
	fields[fieldLon] = lon
	fields[fieldFeatureClass] = fclass
	fields[fieldCountryCode] = country
	fields[fieldAdmin1] = admin1
	fields[fieldAdmin2] = admin2
	fields[fieldTimezone] = tz
	return strings.Join(fields, "\t")
}

func TestParsePlaces(t *testing.T) {
	input := strings.Join([]string{
		placeLine("Keyworth", "Keyworth", "52.8703", "-1.0885", "P", "GB", "ENG", "J9", "Europe/London"),
		placeLine("River Trent", "River Trent", "52.9500", "-1.0000", "H", "GB", "ENG", "J9", "Europe/London"),
		placeLine("", "Wysall", "52.8290", "-1.0960", "P", "GB", "ENG", "J9", "Europe/London"),
		placeLine("Badlat", "Badlat", "not-a-number", "-1.0", "P", "GB", "ENG", "J9", "Europe/London"),
		"too\tfew\tfields",
	}, "\n")

	places, err := parsePlaces(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parsePlaces: %v", err)
	}

	if len(places) != 2 {
		t.Fatalf("parsed %d places, want 2 (got %+v)", len(places), places)
	}

	first := places[0]
	if first.Name != "Keyworth" || first.CountryCode != "GB" || first.Admin2 != "J9" {
		t.Errorf("first place = %+v", first)
	}
	if first.Lat != 52.8703 || first.Lon != -1.0885 {
		t.Errorf("first place coords = %f, %f", first.Lat, first.Lon)
	}
	if first.Timezone != "Europe/London" {
		t.Errorf("first place timezone = %q", first.Timezone)
	}

	// Empty UTF-8 name falls back to the ASCII transliteration.
	if places[1].Name != "Wysall" {
		t.Errorf("second place name = %q, want ASCII fallback Wysall", places[1].Name)
	}
}

func TestParseCountries(t *testing.T) {
	row := make([]string, 9)
	row[0] = "GB"
	row[4] = "United Kingdom"
	row[8] = "EU"

	badContinent := make([]string, 9)
	badContinent[0] = "XX"
	badContinent[4] = "Nowhere"
	badContinent[8] = "ZZ"

	input := strings.Join([]string{
		"# comment line",
		strings.Join(row, "\t"),
		strings.Join(badContinent, "\t"),
	}, "\n")

	countries, err := parseCountries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseCountries: %v", err)
	}
	if len(countries) != 1 {
		t.Fatalf("parsed %d countries, want 1", len(countries))
	}

	gb, ok := countries["GB"]
	if !ok {
		t.Fatal("GB not found")
	}
	if gb.Name != "United Kingdom" || gb.Continent != "EU" {
		t.Errorf("GB = %+v", gb)
	}
}

func TestParseAdminCodes(t *testing.T) {
	input := strings.Join([]string{
		"GB.ENG\tEngland\tEngland\t6269131",
		"FR.11\tÎle-de-France\tIle-de-France\t3012874",
		"short",
	}, "\n")

	include := func(isoCode string) bool { return isoCode == "GB" }
	codes, err := parseAdminCodes(strings.NewReader(input), include)
	if err != nil {
		t.Fatalf("parseAdminCodes: %v", err)
	}

	if len(codes) != 1 {
		t.Fatalf("parsed %d codes, want 1", len(codes))
	}
	if codes["GB.ENG"] != "England" {
		t.Errorf("GB.ENG = %q, want England", codes["GB.ENG"])
	}
}

func TestResultDescribe(t *testing.T) {
	res := &Result{
		Admin1: map[string]string{"GB.ENG": "England"},
		Admin2: map[string]string{"GB.ENG.J9": "Nottinghamshire"},
	}

	p := Place{Name: "Keyworth", CountryCode: "GB", Admin1: "ENG", Admin2: "J9"}
	if got := res.Describe(p); got != "Keyworth, Nottinghamshire" {
		t.Errorf("Describe = %q, want Keyworth, Nottinghamshire", got)
	}

	// No admin2 match falls back to admin1.
	p2 := Place{Name: "Somewhere", CountryCode: "GB", Admin1: "ENG", Admin2: "ZZ"}
	if got := res.Describe(p2); got != "Somewhere, England" {
		t.Errorf("Describe = %q, want Somewhere, England", got)
	}

	// Nothing matches: bare name.
	p3 := Place{Name: "Lost", CountryCode: "FR", Admin1: "11"}
	if got := res.Describe(p3); got != "Lost" {
		t.Errorf("Describe = %q, want Lost", got)
	}
}
