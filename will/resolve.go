package will

import (
	"regexp"
	"strings"
)

const (
	UnknownAsset       = "Unknown Asset"
	UnknownBeneficiary = "Unknown Beneficiary"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slug lowercases name and replaces every whitespace run with one hyphen.
// Synthesized beneficiary ids are built from it, so it must never change.
func Slug(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(name), "-")
}

func SpouseID(name string) string { return "spouse-" + Slug(name) }

func ChildID(name string) string { return "child-" + Slug(name) }

// BeneficiaryOption is one selectable heir: either an explicit Beneficiary or
// one synthesized from family details.
type BeneficiaryOption struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Implicit     bool   `json:"implicit"`
}

// Label is the name shown on the review screen and in the document.
func (o BeneficiaryOption) Label() string {
	if !o.Implicit {
		return o.Name
	}
	return o.Name + " (" + o.Relationship + ")"
}

// ImplicitBeneficiaries derives the spouse (when married) and every named
// child. Nothing here is stored; it is recomputed from family details.
func ImplicitBeneficiaries(family FamilyDetails) []BeneficiaryOption {
	var out []BeneficiaryOption
	if family.MaritalStatus == Married && strings.TrimSpace(family.SpouseName) != "" {
		out = append(out, BeneficiaryOption{
			ID:           SpouseID(family.SpouseName),
			Name:         family.SpouseName,
			Relationship: "Spouse",
			Implicit:     true,
		})
	}
	for _, c := range family.Children {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		out = append(out, BeneficiaryOption{
			ID:           ChildID(c.Name),
			Name:         c.Name,
			Relationship: "Child",
			Implicit:     true,
		})
	}
	return out
}

// BeneficiaryOptions lists explicit beneficiaries first, then implicit ones.
func BeneficiaryOptions(beneficiaries []Beneficiary, family FamilyDetails) []BeneficiaryOption {
	out := make([]BeneficiaryOption, 0, len(beneficiaries)+len(family.Children)+1)
	for _, b := range beneficiaries {
		out = append(out, BeneficiaryOption{ID: b.ID, Name: b.Name, Relationship: b.Relationship})
	}
	return append(out, ImplicitBeneficiaries(family)...)
}

// LookupBeneficiary checks the explicit list first, then regenerates spouse
// and child ids from family details.
func LookupBeneficiary(id string, beneficiaries []Beneficiary, family FamilyDetails) (BeneficiaryOption, bool) {
	for _, b := range beneficiaries {
		if b.ID == id {
			return BeneficiaryOption{ID: b.ID, Name: b.Name, Relationship: b.Relationship}, true
		}
	}
	for _, o := range ImplicitBeneficiaries(family) {
		if o.ID == id {
			return o, true
		}
	}
	return BeneficiaryOption{}, false
}

func ResolveBeneficiaryName(id string, beneficiaries []Beneficiary, family FamilyDetails) string {
	if o, ok := LookupBeneficiary(id, beneficiaries, family); ok {
		return o.Label()
	}
	return UnknownBeneficiary
}

func LookupAsset(id string, assets []Asset) (Asset, bool) {
	for _, a := range assets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}

func ResolveAssetName(id string, assets []Asset) string {
	if a, ok := LookupAsset(id, assets); ok {
		return a.DisplayName()
	}
	return UnknownAsset
}

// ResolvedAllocation is an allocation with both references turned into
// display names.
type ResolvedAllocation struct {
	Allocation
	AssetName       string `json:"assetName"`
	BeneficiaryName string `json:"beneficiaryName"`
}

// ResolveAllocations is shared by the review endpoint and the document
// renderer so both always show the same names.
func ResolveAllocations(d Draft) []ResolvedAllocation {
	out := make([]ResolvedAllocation, 0, len(d.Allocations))
	for _, a := range d.Allocations {
		out = append(out, ResolvedAllocation{
			Allocation:      a,
			AssetName:       ResolveAssetName(a.AssetID, d.Assets),
			BeneficiaryName: ResolveBeneficiaryName(a.BeneficiaryID, d.Beneficiaries, d.FamilyDetails),
		})
	}
	return out
}
