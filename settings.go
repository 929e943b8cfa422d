package linecalc

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
)

// Settings holds the user-configurable behavior of the calculator.
type Settings struct {
	Date    DateSettings    `toml:"date"`
	Display DisplaySettings `toml:"display"`
	// Units are additional units registered on top of the built-in ones.
	Units []CustomUnit `toml:"units"`
}

// DateSettings controls how date objects are read and written.
type DateSettings struct {
	Format    DateFormat `toml:"format"`
	Delimiter string     `toml:"delimiter"`
}

// DisplaySettings controls how results are rendered.
type DisplaySettings struct {
	// FullUnits renders unit names in full, e.g. Kilometers per Hour.
	FullUnits bool `toml:"full_units"`
	// Precision is the number of significant digits in decimal results. Zero
	// means the shortest representation that round trips.
	Precision uint `toml:"precision"`
}

// CustomUnit describes a unit defined as a multiple of a known unit.
//
//	[[units]]
//	name = "furlong"
//	base = "m"
//	factor = 201.168
//	singular = "Furlong"
//	plural = "Furlongs"
type CustomUnit struct {
	Name     string  `toml:"name"`
	Base     string  `toml:"base"`
	Factor   float64 `toml:"factor"`
	Singular string  `toml:"singular"`
	Plural   string  `toml:"plural"`
}

// DateFormat is the order of the fields of a date.
type DateFormat int8

const (
	DMY DateFormat = iota
	MDY
	YMD
)

var dateFormatNames = [...]string{"dmy", "mdy", "ymd"}

func (f DateFormat) String() string {
	if f < 0 || int(f) >= len(dateFormatNames) {
		return fmt.Sprintf("DateFormat(%d)", int(f))
	}
	return dateFormatNames[f]
}

// MarshalText implements encoding.TextMarshaler.
func (f DateFormat) MarshalText() ([]byte, error) {
	if f < 0 || int(f) >= len(dateFormatNames) {
		return nil, fmt.Errorf("invalid date format %d", int(f))
	}
	return []byte(dateFormatNames[f]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *DateFormat) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for i, name := range dateFormatNames {
		if s == name {
			*f = DateFormat(i)
			return nil
		}
	}
	return fmt.Errorf("unknown date format %q (want dmy, mdy, or ymd)", text)
}

// Indices returns the positions of the year, month, and day fields.
func (f DateFormat) Indices() (year, month, day int) {
	switch f {
	case MDY:
		return 2, 0, 1
	case YMD:
		return 0, 1, 2
	default:
		return 2, 1, 0
	}
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() *Settings {
	return &Settings{
		Date:    DateSettings{Format: DMY, Delimiter: "."},
		Display: DisplaySettings{Precision: 12},
	}
}

// DecodeSettings reads TOML settings from r. Fields absent from the input keep
// their default values.
func DecodeSettings(r io.Reader) (*Settings, error) {
	s := DefaultSettings()
	meta, err := toml.NewDecoder(r).Decode(s)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := s.check(meta); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadSettings reads TOML settings from a file.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	meta, err := toml.DecodeFile(path, s)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := s.check(meta); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Settings) check(meta toml.MetaData) error {
	if undec := meta.Undecoded(); len(undec) > 0 {
		return fmt.Errorf("unknown setting %q", undec[0].String())
	}
	if meta.IsDefined("date", "delimiter") && s.Date.Delimiter == "" {
		return fmt.Errorf("date delimiter must not be empty")
	}
	for i, u := range s.Units {
		if u.Name == "" || u.Base == "" {
			return fmt.Errorf("unit %d: name and base are required", i)
		}
		if !(u.Factor > 0) {
			return fmt.Errorf("unit %s: factor must be positive", u.Name)
		}
	}
	return nil
}

// UnitTable creates a unit registry holding the built-in units and the
// custom units of s.
func (s *Settings) UnitTable() (*UnitTable, error) {
	t := NewUnitTable()
	for _, u := range s.Units {
		singular, plural := u.Singular, u.Plural
		if singular == "" {
			singular = u.Name
		}
		if plural == "" {
			plural = singular
		}
		if !t.Add(u.Name, u.Base, u.Factor, singular, plural) {
			return nil, fmt.Errorf("unit %s: unknown base unit %q", u.Name, u.Base)
		}
	}
	return t, nil
}
