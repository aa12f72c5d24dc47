// Package fhirtypes provides a static registry of FHIR R4 structural typing:
// element types and cardinality per path, and choice-type (value[x])
// expansion to the concrete JSON keys stored in resources.
package fhirtypes

import (
	"fmt"
	"sort"

	"github.com/fhir4ds/fhirsql/pkg/core"
)

// ElementInfo describes one element of a resource or complex type.
type ElementInfo struct {
	// Type is the FHIRPath system type of the element.
	Type core.Type
	// Complex names the complex type for nested lookup (e.g. "HumanName").
	// Empty for primitives.
	Complex string
	// Array is true when the element's cardinality is 0..* or 1..*.
	Array bool
	// Choice is true for value[x]-style elements. ChoiceTypes maps the
	// type suffix (e.g. "Quantity") to its element info.
	Choice      bool
	ChoiceTypes map[string]ElementInfo
}

// ChoiceVariant is one concrete expansion of a choice element.
type ChoiceVariant struct {
	// Key is the JSON property name, e.g. "valueQuantity".
	Key  string
	Info ElementInfo
}

// Registry resolves element types for FHIR resources and complex types.
type Registry struct {
	resources map[string]map[string]ElementInfo
	complex   map[string]map[string]ElementInfo
}

// NewRegistry returns a registry seeded with the R4 core definitions
// the compiler ships with.
func NewRegistry() *Registry {
	return &Registry{
		resources: r4Resources,
		complex:   r4ComplexTypes,
	}
}

// IsResource returns true if name is a known resource type.
func (r *Registry) IsResource(name string) bool {
	_, ok := r.resources[name]
	return ok
}

// Lookup resolves an element on a resource or complex type.
// The second return is false when either the parent or the element is
// unknown; callers fall back to untyped JSON navigation in that case.
func (r *Registry) Lookup(parent, element string) (ElementInfo, bool) {
	if elems, ok := r.resources[parent]; ok {
		info, ok := elems[element]
		return info, ok
	}
	if elems, ok := r.complex[parent]; ok {
		info, ok := elems[element]
		return info, ok
	}
	return ElementInfo{}, false
}

// ExpandChoice returns the concrete JSON keys for a choice element, sorted
// by key for deterministic SQL output. Returns an error when the element
// exists but is not a choice, so misuse fails loudly instead of silently
// generating a dead JSON path.
func (r *Registry) ExpandChoice(parent, element string) ([]ChoiceVariant, error) {
	info, ok := r.Lookup(parent, element)
	if !ok {
		return nil, fmt.Errorf("unknown element %q on %s", element, parent)
	}
	if !info.Choice {
		return nil, fmt.Errorf("element %s.%s is not a choice type", parent, element)
	}

	variants := make([]ChoiceVariant, 0, len(info.ChoiceTypes))
	for suffix, vi := range info.ChoiceTypes {
		variants = append(variants, ChoiceVariant{
			Key:  element + suffix,
			Info: vi,
		})
	}
	sort.Slice(variants, func(i, j int) bool {
		return variants[i].Key < variants[j].Key
	})
	return variants, nil
}

// ChoiceVariantFor returns the single choice expansion matching a type
// specifier, for ofType()/as rewrites like Observation.value.ofType(Quantity).
func (r *Registry) ChoiceVariantFor(parent, element, typeName string) (ChoiceVariant, error) {
	variants, err := r.ExpandChoice(parent, element)
	if err != nil {
		return ChoiceVariant{}, err
	}
	want := core.TypeFromName(typeName)
	for _, v := range variants {
		if v.Info.Complex == typeName {
			return v, nil
		}
		if v.Info.Complex == "" && v.Info.Type == want {
			return v, nil
		}
	}
	return ChoiceVariant{}, fmt.Errorf("choice element %s.%s has no %s variant", parent, element, typeName)
}
