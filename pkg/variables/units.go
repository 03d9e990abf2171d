// Package variables implements the global parametric variable store: named,
// unit-typed, textually-expressed values that sketch dimensions and feature
// parameters reference by name, evaluated in dependency order with cycle
// detection.
package variables

import "math"

// LengthUnit is a unit of length convertible to millimetres, the base unit.
type LengthUnit int

const (
	Millimeter LengthUnit = iota
	Centimeter
	Meter
	Inch
	Foot
)

// ToMM converts a value expressed in this unit to millimetres.
func (u LengthUnit) ToMM(value float64) float64 {
	switch u {
	case Millimeter:
		return value
	case Centimeter:
		return value * 10.0
	case Meter:
		return value * 1000.0
	case Inch:
		return value * 25.4
	case Foot:
		return value * 304.8
	default:
		return value
	}
}

// FromMM converts a millimetre value to this unit.
func (u LengthUnit) FromMM(mm float64) float64 {
	switch u {
	case Millimeter:
		return mm
	case Centimeter:
		return mm / 10.0
	case Meter:
		return mm / 1000.0
	case Inch:
		return mm / 25.4
	case Foot:
		return mm / 304.8
	default:
		return mm
	}
}

// String returns the conventional unit suffix (mm, cm, m, in, ft).
func (u LengthUnit) String() string {
	switch u {
	case Millimeter:
		return "mm"
	case Centimeter:
		return "cm"
	case Meter:
		return "m"
	case Inch:
		return "in"
	case Foot:
		return "ft"
	default:
		return "mm"
	}
}

// AngleUnit is a unit of angle convertible to radians, the base unit.
type AngleUnit int

const (
	Degrees AngleUnit = iota
	Radians
)

// ToRadians converts a value expressed in this unit to radians.
func (u AngleUnit) ToRadians(value float64) float64 {
	if u == Radians {
		return value
	}
	return value * math.Pi / 180.0
}

// FromRadians converts a radians value to this unit.
func (u AngleUnit) FromRadians(radians float64) float64 {
	if u == Radians {
		return radians
	}
	return radians * 180.0 / math.Pi
}

// String returns the conventional unit suffix (deg, rad).
func (u AngleUnit) String() string {
	if u == Radians {
		return "rad"
	}
	return "deg"
}

// UnitKind is the closed tag of a Unit's dimension.
type UnitKind int

const (
	Dimensionless UnitKind = iota
	KindLength
	KindAngle
)

// Unit is a variable's dimension: dimensionless, a length in some
// LengthUnit, or an angle in some AngleUnit. Only the field matching Kind is
// meaningful.
type Unit struct {
	Kind  UnitKind  `yaml:"kind" json:"kind"`
	Len   LengthUnit `yaml:"len,omitempty" json:"len,omitempty"`
	Angle AngleUnit  `yaml:"angle,omitempty" json:"angle,omitempty"`
}

// DimensionlessUnit is the zero-value, unit-less dimension.
func DimensionlessUnit() Unit { return Unit{Kind: Dimensionless} }

// LengthOf builds a Length-dimensioned unit.
func LengthOf(lu LengthUnit) Unit { return Unit{Kind: KindLength, Len: lu} }

// AngleOf builds an Angle-dimensioned unit.
func AngleOf(au AngleUnit) Unit { return Unit{Kind: KindAngle, Angle: au} }

// ToBase converts value, expressed in this unit, to base units (mm for
// Length, radians for Angle, unchanged for Dimensionless).
func (u Unit) ToBase(value float64) float64 {
	switch u.Kind {
	case KindLength:
		return u.Len.ToMM(value)
	case KindAngle:
		return u.Angle.ToRadians(value)
	default:
		return value
	}
}

// FromBase converts a base-unit value to this unit.
func (u Unit) FromBase(base float64) float64 {
	switch u.Kind {
	case KindLength:
		return u.Len.FromMM(base)
	case KindAngle:
		return u.Angle.FromRadians(base)
	default:
		return base
	}
}

// IsCompatible reports whether u and other share the same dimension,
// regardless of the specific sub-unit.
func (u Unit) IsCompatible(other Unit) bool {
	return u.Kind == other.Kind
}

// String returns the unit's display suffix.
func (u Unit) String() string {
	switch u.Kind {
	case KindLength:
		return u.Len.String()
	case KindAngle:
		return u.Angle.String()
	default:
		return ""
	}
}
