package article

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ParseYear returns the year when raw consists entirely of decimal digits
// (after trimming) and is positive. Anything else is absent.
func ParseYear(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return nil
		}
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year <= 0 {
		return nil
	}
	return &year
}

// flexibleYear unmarshals a year from either a JSON number or string.
// Documents written by other tools store the year either way.
type flexibleYear struct {
	value *int
}

func (f *flexibleYear) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		f.value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.value = ParseYear(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Malformed year values are coerced to absent
		f.value = nil
		return nil
	}
	f.value = ParseYear(n.String())
	return nil
}

// UnmarshalJSON decodes a record, accepting the year as a number or a string.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	aux := struct {
		*plain
		Year flexibleYear `json:"year"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Year = aux.Year.value
	return nil
}
