package address

import (
	"errors"
	"fmt"
	"strconv"
)

// Header names of the RÚIAN CSV export. They are matched exactly (case and
// diacritics included).
const (
	HeaderADMCode               = "Kód ADM"
	HeaderTownCode              = "Kód obce"
	HeaderTown                  = "Název obce"
	HeaderCityPartCode          = "Kód MOMC"
	HeaderCityPart              = "Název MOMC"
	HeaderPraguePartCode        = "Kód obvodu Prahy"
	HeaderPraguePart            = "Název obvodu Prahy"
	HeaderTownPartCode          = "Kód části obce"
	HeaderTownPart              = "Název části obce"
	HeaderStreetCode            = "Kód ulice"
	HeaderStreet                = "Název ulice"
	HeaderObjectType            = "Typ SO"
	HeaderNumber                = "Číslo domovní"
	HeaderOrientationNumber     = "Číslo orientační"
	HeaderOrientationNumberSign = "Znak čísla orientačního"
	HeaderZipCode               = "PSČ"
	HeaderLocationX             = "Souřadnice X"
	HeaderLocationY             = "Souřadnice Y"
	HeaderValidSince            = "Platí Od"
)

// ErrEmpty is returned when a required numeric or date cell is empty.
var ErrEmpty = errors.New("required value is empty")

// Kind is the declared type of a column.
type Kind uint8

const (
	KindString Kind = iota
	KindUint
	KindFloat
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Column binds one header name to one Record field.
type Column struct {
	Header   string
	Kind     Kind
	Optional bool

	set func(r *Record, cell string) error
}

// Apply parses cell into r. An empty cell leaves an optional field nil, sets
// a required text field to "" and fails any other required field with
// ErrEmpty.
func (c Column) Apply(r *Record, cell string) error {
	if cell == "" {
		switch {
		case c.Optional:
			return nil
		case c.Kind == KindString:
			return c.set(r, cell)
		}
		return ErrEmpty
	}
	return c.set(r, cell)
}

// Columns is the full table for the address export, in the order the export
// publishes them. The parser maps by Header, never by position.
var Columns = []Column{
	{Header: HeaderADMCode, Kind: KindUint, set: func(r *Record, s string) (err error) {
		r.ADMCode, err = parseUint32(s)
		return err
	}},
	{Header: HeaderTownCode, Kind: KindUint, set: func(r *Record, s string) (err error) {
		r.TownCode, err = parseUint32(s)
		return err
	}},
	{Header: HeaderTown, Kind: KindString, set: func(r *Record, s string) error {
		r.Town = s
		return nil
	}},
	{Header: HeaderCityPartCode, Kind: KindUint, Optional: true, set: func(r *Record, s string) error {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		r.CityPartCode = &v
		return nil
	}},
	{Header: HeaderCityPart, Kind: KindString, Optional: true, set: func(r *Record, s string) error {
		r.CityPart = ptr(s)
		return nil
	}},
	{Header: HeaderPraguePartCode, Kind: KindUint, Optional: true, set: func(r *Record, s string) error {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		r.PraguePartCode = &v
		return nil
	}},
	{Header: HeaderPraguePart, Kind: KindString, Optional: true, set: func(r *Record, s string) error {
		r.PraguePart = ptr(s)
		return nil
	}},
	{Header: HeaderTownPartCode, Kind: KindUint, set: func(r *Record, s string) (err error) {
		r.TownPartCode, err = parseUint32(s)
		return err
	}},
	{Header: HeaderTownPart, Kind: KindString, set: func(r *Record, s string) error {
		r.TownPart = s
		return nil
	}},
	{Header: HeaderStreetCode, Kind: KindUint, Optional: true, set: func(r *Record, s string) error {
		v, err := parseUint32(s)
		if err != nil {
			return err
		}
		r.StreetCode = &v
		return nil
	}},
	{Header: HeaderStreet, Kind: KindString, Optional: true, set: func(r *Record, s string) error {
		r.Street = ptr(s)
		return nil
	}},
	{Header: HeaderObjectType, Kind: KindString, set: func(r *Record, s string) error {
		r.ObjectType = s
		return nil
	}},
	{Header: HeaderNumber, Kind: KindUint, set: func(r *Record, s string) (err error) {
		r.Number, err = parseUint32(s)
		return err
	}},
	{Header: HeaderOrientationNumber, Kind: KindUint, Optional: true, set: func(r *Record, s string) error {
		v, err := parseUint32(s)
		if err != nil {
			return err
		}
		r.OrientationNumber = &v
		return nil
	}},
	{Header: HeaderOrientationNumberSign, Kind: KindString, Optional: true, set: func(r *Record, s string) error {
		r.OrientationNumberSign = ptr(s)
		return nil
	}},
	{Header: HeaderZipCode, Kind: KindUint, set: func(r *Record, s string) (err error) {
		r.ZipCode, err = parseUint32(s)
		return err
	}},
	{Header: HeaderLocationX, Kind: KindFloat, Optional: true, set: func(r *Record, s string) error {
		v, err := parseFloat32(s)
		if err != nil {
			return err
		}
		r.LocationX = &v
		return nil
	}},
	{Header: HeaderLocationY, Kind: KindFloat, Optional: true, set: func(r *Record, s string) error {
		v, err := parseFloat32(s)
		if err != nil {
			return err
		}
		r.LocationY = &v
		return nil
	}},
	{Header: HeaderValidSince, Kind: KindDate, set: func(r *Record, s string) (err error) {
		r.ValidSince, err = ParseDate(s)
		return err
	}},
}

// Headers returns the header names of Columns in table order.
func Headers() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Header
	}
	return out
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

func parseFloat32(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	return float32(v), err
}
