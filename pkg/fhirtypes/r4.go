package fhirtypes

import "github.com/fhir4ds/fhirsql/pkg/core"

// R4 core structural definitions for the resources and complex types the
// compiler ships with. Generated by hand from the R4 StructureDefinitions;
// keep alphabetical within each map.

func prim(t core.Type) ElementInfo         { return ElementInfo{Type: t} }
func primList(t core.Type) ElementInfo     { return ElementInfo{Type: t, Array: true} }
func complexOf(name string) ElementInfo    { return ElementInfo{Type: core.TypeComplex, Complex: name} }
func complexList(name string) ElementInfo  { return ElementInfo{Type: core.TypeComplex, Complex: name, Array: true} }
func quantity() ElementInfo                { return ElementInfo{Type: core.TypeQuantity, Complex: "Quantity"} }
func choice(types map[string]ElementInfo) ElementInfo {
	return ElementInfo{Type: core.TypeAny, Choice: true, ChoiceTypes: types}
}

var r4Resources = map[string]map[string]ElementInfo{
	"Patient": {
		"id":            prim(core.TypeString),
		"active":        prim(core.TypeBoolean),
		"address":       complexList("Address"),
		"birthDate":     prim(core.TypeDate),
		"communication": complexList("BackboneElement"),
		"contact":       complexList("BackboneElement"),
		"deceased": choice(map[string]ElementInfo{
			"Boolean":  prim(core.TypeBoolean),
			"DateTime": prim(core.TypeDateTime),
		}),
		"gender":               prim(core.TypeString),
		"generalPractitioner":  complexList("Reference"),
		"identifier":           complexList("Identifier"),
		"managingOrganization": complexOf("Reference"),
		"maritalStatus":        complexOf("CodeableConcept"),
		"multipleBirth": choice(map[string]ElementInfo{
			"Boolean": prim(core.TypeBoolean),
			"Integer": prim(core.TypeInteger),
		}),
		"name":    complexList("HumanName"),
		"telecom": complexList("ContactPoint"),
	},
	"Observation": {
		"id":                prim(core.TypeString),
		"basedOn":           complexList("Reference"),
		"category":          complexList("CodeableConcept"),
		"code":              complexOf("CodeableConcept"),
		"component":         complexList("ObservationComponent"),
		"dataAbsentReason":  complexOf("CodeableConcept"),
		"derivedFrom":       complexList("Reference"),
		"effective": choice(map[string]ElementInfo{
			"DateTime": prim(core.TypeDateTime),
			"Period":   complexOf("Period"),
		}),
		"encounter":      complexOf("Reference"),
		"identifier":     complexList("Identifier"),
		"interpretation": complexList("CodeableConcept"),
		"issued":         prim(core.TypeDateTime),
		"method":         complexOf("CodeableConcept"),
		"note":           complexList("Annotation"),
		"performer":      complexList("Reference"),
		"referenceRange": complexList("BackboneElement"),
		"status":         prim(core.TypeString),
		"subject":        complexOf("Reference"),
		"value": choice(map[string]ElementInfo{
			"Boolean":         prim(core.TypeBoolean),
			"CodeableConcept": complexOf("CodeableConcept"),
			"DateTime":        prim(core.TypeDateTime),
			"Integer":         prim(core.TypeInteger),
			"Period":          complexOf("Period"),
			"Quantity":        quantity(),
			"Range":           complexOf("Range"),
			"Ratio":           complexOf("Ratio"),
			"SampledData":     complexOf("SampledData"),
			"String":          prim(core.TypeString),
			"Time":            prim(core.TypeTime),
		}),
	},
	"Condition": {
		"id":                 prim(core.TypeString),
		"abatement": choice(map[string]ElementInfo{
			"Age":      quantity(),
			"DateTime": prim(core.TypeDateTime),
			"Period":   complexOf("Period"),
			"Range":    complexOf("Range"),
			"String":   prim(core.TypeString),
		}),
		"bodySite":           complexList("CodeableConcept"),
		"category":           complexList("CodeableConcept"),
		"clinicalStatus":     complexOf("CodeableConcept"),
		"code":               complexOf("CodeableConcept"),
		"encounter":          complexOf("Reference"),
		"evidence":           complexList("BackboneElement"),
		"identifier":         complexList("Identifier"),
		"onset": choice(map[string]ElementInfo{
			"Age":      quantity(),
			"DateTime": prim(core.TypeDateTime),
			"Period":   complexOf("Period"),
			"Range":    complexOf("Range"),
			"String":   prim(core.TypeString),
		}),
		"recordedDate":       prim(core.TypeDateTime),
		"severity":           complexOf("CodeableConcept"),
		"subject":            complexOf("Reference"),
		"verificationStatus": complexOf("CodeableConcept"),
	},
	"MedicationRequest": {
		"id":                prim(core.TypeString),
		"authoredOn":        prim(core.TypeDateTime),
		"dosageInstruction": complexList("Dosage"),
		"encounter":         complexOf("Reference"),
		"identifier":        complexList("Identifier"),
		"intent":            prim(core.TypeString),
		"medication": choice(map[string]ElementInfo{
			"CodeableConcept": complexOf("CodeableConcept"),
			"Reference":       complexOf("Reference"),
		}),
		"requester": complexOf("Reference"),
		"status":    prim(core.TypeString),
		"subject":   complexOf("Reference"),
	},
	"Encounter": {
		"id":           prim(core.TypeString),
		"class":        complexOf("Coding"),
		"diagnosis":    complexList("BackboneElement"),
		"identifier":   complexList("Identifier"),
		"participant":  complexList("BackboneElement"),
		"period":       complexOf("Period"),
		"serviceType":  complexOf("CodeableConcept"),
		"status":       prim(core.TypeString),
		"subject":      complexOf("Reference"),
		"type":         complexList("CodeableConcept"),
	},
}

var r4ComplexTypes = map[string]map[string]ElementInfo{
	"Address": {
		"city":       prim(core.TypeString),
		"country":    prim(core.TypeString),
		"district":   prim(core.TypeString),
		"line":       primList(core.TypeString),
		"period":     complexOf("Period"),
		"postalCode": prim(core.TypeString),
		"state":      prim(core.TypeString),
		"text":       prim(core.TypeString),
		"type":       prim(core.TypeString),
		"use":        prim(core.TypeString),
	},
	"Annotation": {
		"authorReference": complexOf("Reference"),
		"authorString":    prim(core.TypeString),
		"text":            prim(core.TypeString),
		"time":            prim(core.TypeDateTime),
	},
	"CodeableConcept": {
		"coding": complexList("Coding"),
		"text":   prim(core.TypeString),
	},
	"Coding": {
		"code":         prim(core.TypeString),
		"display":      prim(core.TypeString),
		"system":       prim(core.TypeString),
		"userSelected": prim(core.TypeBoolean),
		"version":      prim(core.TypeString),
	},
	"ContactPoint": {
		"period": complexOf("Period"),
		"rank":   prim(core.TypeInteger),
		"system": prim(core.TypeString),
		"use":    prim(core.TypeString),
		"value":  prim(core.TypeString),
	},
	"Dosage": {
		"asNeededBoolean": prim(core.TypeBoolean),
		"route":           complexOf("CodeableConcept"),
		"sequence":        prim(core.TypeInteger),
		"text":            prim(core.TypeString),
		"timing":          complexOf("BackboneElement"),
	},
	"HumanName": {
		"family": prim(core.TypeString),
		"given":  primList(core.TypeString),
		"period": complexOf("Period"),
		"prefix": primList(core.TypeString),
		"suffix": primList(core.TypeString),
		"text":   prim(core.TypeString),
		"use":    prim(core.TypeString),
	},
	"Identifier": {
		"assigner": complexOf("Reference"),
		"period":   complexOf("Period"),
		"system":   prim(core.TypeString),
		"type":     complexOf("CodeableConcept"),
		"use":      prim(core.TypeString),
		"value":    prim(core.TypeString),
	},
	"ObservationComponent": {
		"code":             complexOf("CodeableConcept"),
		"dataAbsentReason": complexOf("CodeableConcept"),
		"interpretation":   complexList("CodeableConcept"),
		"value": choice(map[string]ElementInfo{
			"Boolean":         prim(core.TypeBoolean),
			"CodeableConcept": complexOf("CodeableConcept"),
			"DateTime":        prim(core.TypeDateTime),
			"Integer":         prim(core.TypeInteger),
			"Period":          complexOf("Period"),
			"Quantity":        quantity(),
			"Range":           complexOf("Range"),
			"Ratio":           complexOf("Ratio"),
			"SampledData":     complexOf("SampledData"),
			"String":          prim(core.TypeString),
			"Time":            prim(core.TypeTime),
		}),
	},
	"Period": {
		"end":   prim(core.TypeDateTime),
		"start": prim(core.TypeDateTime),
	},
	"Quantity": {
		"code":       prim(core.TypeString),
		"comparator": prim(core.TypeString),
		"system":     prim(core.TypeString),
		"unit":       prim(core.TypeString),
		"value":      prim(core.TypeDecimal),
	},
	"Range": {
		"high": quantity(),
		"low":  quantity(),
	},
	"Ratio": {
		"denominator": quantity(),
		"numerator":   quantity(),
	},
	"Reference": {
		"display":   prim(core.TypeString),
		"reference": prim(core.TypeString),
		"type":      prim(core.TypeString),
	},
	"SampledData": {
		"data":       prim(core.TypeString),
		"dimensions": prim(core.TypeInteger),
		"origin":     quantity(),
		"period":     prim(core.TypeDecimal),
	},
	// BackboneElement is a catch-all for nested backbone structures the
	// seed registry does not model field-by-field; navigation into it
	// falls back to untyped JSON access.
	"BackboneElement": {},
}
