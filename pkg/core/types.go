package core

// Type represents a FHIRPath system type as known statically during
// translation. TypeAny is used when the static type cannot be narrowed.
type Type int

// Type constants for the FHIRPath system types.
const (
	TypeAny Type = iota
	TypeBoolean
	TypeString
	TypeInteger
	TypeDecimal
	TypeDate
	TypeDateTime
	TypeTime
	TypeQuantity
	TypeComplex // backbone/complex FHIR element, kept as JSON
)

// String returns the FHIRPath system type name.
func (t Type) String() string {
	switch t {
	case TypeBoolean:
		return "Boolean"
	case TypeString:
		return "String"
	case TypeInteger:
		return "Integer"
	case TypeDecimal:
		return "Decimal"
	case TypeDate:
		return "Date"
	case TypeDateTime:
		return "DateTime"
	case TypeTime:
		return "Time"
	case TypeQuantity:
		return "Quantity"
	case TypeComplex:
		return "Complex"
	default:
		return "Any"
	}
}

// IsNumeric returns true for Integer and Decimal.
func (t Type) IsNumeric() bool {
	return t == TypeInteger || t == TypeDecimal
}

// IsTemporal returns true for Date, DateTime, and Time.
func (t Type) IsTemporal() bool {
	return t == TypeDate || t == TypeDateTime || t == TypeTime
}

// TypeFromName resolves a FHIRPath type specifier to a system type.
// Accepts both bare (String) and qualified (System.String) names, plus the
// FHIR primitive spellings (string, integer, ...). Unknown names resolve to
// TypeComplex so that `is`/`as` against resource types still translate.
func TypeFromName(name string) Type {
	if len(name) > 7 && name[:7] == "System." {
		name = name[7:]
	}
	switch name {
	case "Boolean", "boolean":
		return TypeBoolean
	case "String", "string", "code", "uri", "url", "canonical", "id", "oid", "markdown", "base64Binary":
		return TypeString
	case "Integer", "integer", "positiveInt", "unsignedInt":
		return TypeInteger
	case "Decimal", "decimal":
		return TypeDecimal
	case "Date", "date":
		return TypeDate
	case "DateTime", "dateTime", "instant":
		return TypeDateTime
	case "Time", "time":
		return TypeTime
	case "Quantity":
		return TypeQuantity
	default:
		return TypeComplex
	}
}
