package models

import (
	"fmt"
	"strings"
)

// Resource is a bookable car.
type Resource struct {
	ID           int64
	Model        string
	LicensePlate string
}

// PlateKey normalizes a license plate for lookups.
func PlateKey(plate string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(plate), " ", ""))
}

func (r *Resource) Key() string {
	return PlateKey(r.LicensePlate)
}

func (r *Resource) String() string {
	if r.LicensePlate != "" {
		return fmt.Sprintf("%s (%s)", r.Model, r.LicensePlate)
	}
	return r.Model
}
