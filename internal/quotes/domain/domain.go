// Package domain defines the quote lifecycle and the arborist work catalog.
package domain

import (
	"time"

	"arborlead_backend/platform/apperr"
)

// Status is the quote lifecycle state.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// SentQuoteTTL is how long a customer has to respond to a sent quote.
const SentQuoteTTL = 30 * 24 * time.Hour

// TreeSpecies is the species catalog used on quote lines. Values are the
// Swedish labels shown to customers, with the English name in parentheses.
type TreeSpecies string

const (
	SpeciesPine       TreeSpecies = "Tall (Pine)"
	SpeciesSpruce     TreeSpecies = "Gran (Spruce)"
	SpeciesOak        TreeSpecies = "Ek (Oak)"
	SpeciesBeech      TreeSpecies = "Bok (Beech)"
	SpeciesMaple      TreeSpecies = "Lönn (Maple)"
	SpeciesAsh        TreeSpecies = "Ask (Ash)"
	SpeciesAlder      TreeSpecies = "Al (Alder)"
	SpeciesBirch      TreeSpecies = "Björk (Birch)"
	SpeciesLinden     TreeSpecies = "Lind (Linden)"
	SpeciesBirdCherry TreeSpecies = "Hägg (Bird Cherry)"
	SpeciesRowan      TreeSpecies = "Rönn (Rowan)"
	SpeciesCherry     TreeSpecies = "Körsbär (Cherry)"
	SpeciesWalnut     TreeSpecies = "Valnöt (Walnut)"
	SpeciesPoplar     TreeSpecies = "Poppel (Poplar)"
	SpeciesPlane      TreeSpecies = "Platan (Plane)"
	SpeciesWillow     TreeSpecies = "Pil (Willow)"
)

// OperationType is the work catalog for quote lines.
type OperationType string

const (
	OpDeadWood               OperationType = "Död veds beskärning"
	OpFelling                OperationType = "Trädfällning"
	OpSectionFelling         OperationType = "Sektionsfällning"
	OpAdvancedSectionFelling OperationType = "Avancerad sektionsfällning"
	OpCrownReduction         OperationType = "Kronreducering"
	OpMaintenancePruning     OperationType = "Underhållsbeskärning"
	OpSpacePruning           OperationType = "Utrymmesbeskärning"
	OpCrownLifting           OperationType = "Kronlyft"
	OpPollarding             OperationType = "Hamling"
	OpOther                  OperationType = "Annat"
	OpRemoval                OperationType = "Bortförsling"
	OpThinning               OperationType = "Urglesing"
	OpStumpGrinding          OperationType = "Stubbfräsning"
	OpCrownStabilization     OperationType = "Kronstabilisering"
	OpEmergency              OperationType = "Jour"
)

var validSpecies = map[TreeSpecies]bool{
	SpeciesPine: true, SpeciesSpruce: true, SpeciesOak: true, SpeciesBeech: true,
	SpeciesMaple: true, SpeciesAsh: true, SpeciesAlder: true, SpeciesBirch: true,
	SpeciesLinden: true, SpeciesBirdCherry: true, SpeciesRowan: true, SpeciesCherry: true,
	SpeciesWalnut: true, SpeciesPoplar: true, SpeciesPlane: true, SpeciesWillow: true,
}

var validOperations = map[OperationType]bool{
	OpDeadWood: true, OpFelling: true, OpSectionFelling: true, OpAdvancedSectionFelling: true,
	OpCrownReduction: true, OpMaintenancePruning: true, OpSpacePruning: true, OpCrownLifting: true,
	OpPollarding: true, OpOther: true, OpRemoval: true, OpThinning: true,
	OpStumpGrinding: true, OpCrownStabilization: true, OpEmergency: true,
}

var validStatuses = map[Status]bool{
	StatusDraft: true, StatusSent: true, StatusApproved: true, StatusDeclined: true,
}

// ParseStatus validates a raw quote status string.
func ParseStatus(raw string) (Status, error) {
	status := Status(raw)
	if !validStatuses[status] {
		return "", apperr.Validation("unknown quote status: " + raw)
	}
	return status, nil
}

// ValidateSpecies checks the species against the catalog.
func ValidateSpecies(raw string) (TreeSpecies, error) {
	species := TreeSpecies(raw)
	if !validSpecies[species] {
		return "", apperr.Validation("unknown tree species: " + raw)
	}
	return species, nil
}

// ValidateOperation checks the operation against the work catalog. The
// "Annat" operation requires a free-text description of the custom work.
func ValidateOperation(raw, customOperation string) (OperationType, error) {
	op := OperationType(raw)
	if !validOperations[op] {
		return "", apperr.Validation("unknown operation type: " + raw)
	}
	if op == OpOther && customOperation == "" {
		return "", apperr.Validation("customOperation is required for operation \"Annat\"")
	}
	return op, nil
}

// AllSpecies returns the species catalog for the quote form.
func AllSpecies() []TreeSpecies {
	return []TreeSpecies{
		SpeciesPine, SpeciesSpruce, SpeciesOak, SpeciesBeech,
		SpeciesMaple, SpeciesAsh, SpeciesAlder, SpeciesBirch,
		SpeciesLinden, SpeciesBirdCherry, SpeciesRowan, SpeciesCherry,
		SpeciesWalnut, SpeciesPoplar, SpeciesPlane, SpeciesWillow,
	}
}

// AllOperations returns the work catalog for the quote form.
func AllOperations() []OperationType {
	return []OperationType{
		OpDeadWood, OpFelling, OpSectionFelling, OpAdvancedSectionFelling,
		OpCrownReduction, OpMaintenancePruning, OpSpacePruning, OpCrownLifting,
		OpPollarding, OpOther, OpRemoval, OpThinning,
		OpStumpGrinding, OpCrownStabilization, OpEmergency,
	}
}
