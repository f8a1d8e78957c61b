package services

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// HolidayTable maps "MM-DD" to a holiday description. Only fixed-date
// holidays are representable.
type HolidayTable map[string]string

// DefaultHolidays are the fixed-date French public holidays
var DefaultHolidays = HolidayTable{
	"01-01": "Jour de l'an",
	"05-01": "Fête du Travail",
	"05-08": "Victoire 1945",
	"07-14": "Fête Nationale",
	"08-15": "Assomption",
	"11-01": "Toussaint",
	"11-11": "Armistice 1918",
	"12-25": "Noël",
}

// Lookup returns the description of the holiday falling on date, if any
func (h HolidayTable) Lookup(date time.Time) (string, bool) {
	desc, ok := h[date.Format("01-02")]
	return desc, ok
}

type holidayFile struct {
	Holidays map[string]string `yaml:"holidays"`
}

// LoadHolidayTable reads a YAML document of the form
//
//	holidays:
//	  "01-01": "Jour de l'an"
//
// and validates every key.
func LoadHolidayTable(r io.Reader) (HolidayTable, error) {
	var file holidayFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse holiday table: %w", err)
	}
	table := make(HolidayTable, len(file.Holidays))
	for key, desc := range file.Holidays {
		// 2024 is a leap year so 02-29 is accepted
		if _, err := time.Parse("2006-01-02", "2024-"+key); err != nil {
			return nil, fmt.Errorf("invalid holiday date %q: want MM-DD", key)
		}
		table[key] = desc
	}
	return table, nil
}
