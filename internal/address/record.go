// Package address defines the typed RÚIAN address record and the column
// table that binds the Czech header names of the CSV export to record fields.
//
// Optional columns are pointer fields: nil means the source cell was empty,
// which is distinct from a pointer to zero or to "".
package address

import "time"

// Record is one address point ("adresní místo") as published in the RÚIAN
// CSV export. Every successfully parsed Record has all non-pointer fields
// populated.
type Record struct {
	// ADMCode is the address point code in ISÚI. Unique within a well-formed
	// archive, but uniqueness is not enforced here.
	ADMCode uint32 `json:"adm_code"`

	TownCode uint32 `json:"town_code"`
	Town     string `json:"town"`

	// City district, filled only for statutory cities split into districts.
	CityPartCode *uint64 `json:"city_part_code"`
	CityPart     *string `json:"city_part"`

	// Prague district, filled only for the capital.
	PraguePartCode *uint64 `json:"prague_part_code"`
	PraguePart     *string `json:"prague_part"`

	TownPartCode uint32 `json:"town_part_code"`
	TownPart     string `json:"town_part"`

	// Street is present only in towns with a street network.
	StreetCode *uint32 `json:"street_code"`
	Street     *string `json:"street"`

	// ObjectType is the building object type ("č.p." or "č.ev.").
	ObjectType string `json:"object_type"`
	Number     uint32 `json:"number"`

	OrientationNumber     *uint32 `json:"orientation_number"`
	OrientationNumberSign *string `json:"orientation_number_sign"`

	ZipCode uint32 `json:"zip_code"`

	// S-JTSK coordinates of the definition point, in metres.
	LocationX *float32 `json:"location_x"`
	LocationY *float32 `json:"location_y"`

	// ValidSince is midnight UTC of the "Platí Od" date. 2011-07-01 marks
	// points created by the initial data migration.
	ValidSince time.Time `json:"valid_since"`
}

// ptr returns a pointer to a copy of v.
func ptr[T any](v T) *T { return &v }
