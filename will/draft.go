// Package will holds the will-drafting domain: the six draft sections, the
// asset tagged union, implicit beneficiaries derived from family details,
// reference resolution, default-draft merging and step validation.
package will

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Section names a top-level part of a draft.
type Section string

const (
	SectionPersonalInfo  Section = "personalInfo"
	SectionFamilyDetails Section = "familyDetails"
	SectionAssets        Section = "assets"
	SectionBeneficiaries Section = "beneficiaries"
	SectionAllocations   Section = "allocations"
	SectionExecutor      Section = "executor"
)

// Sections lists every draft section in wizard order.
var Sections = []Section{
	SectionPersonalInfo,
	SectionFamilyDetails,
	SectionAssets,
	SectionBeneficiaries,
	SectionAllocations,
	SectionExecutor,
}

func ParseSection(s string) (Section, error) {
	for _, sec := range Sections {
		if string(sec) == s {
			return sec, nil
		}
	}
	return "", fmt.Errorf("unknown section %q", s)
}

// IsList reports whether the section is a set of id-keyed items rather than a
// singleton record.
func (s Section) IsList() bool {
	return s == SectionAssets || s == SectionBeneficiaries || s == SectionAllocations
}

// Draft is the working, unfinalized will.
type Draft struct {
	PersonalInfo  PersonalInfo  `json:"personalInfo"`
	FamilyDetails FamilyDetails `json:"familyDetails"`
	Assets        []Asset       `json:"assets"`
	Beneficiaries []Beneficiary `json:"beneficiaries"`
	Allocations   []Allocation  `json:"allocations"`
	Executor      Executor      `json:"executor"`

	// Version and CreatedAt stay nil until the draft has been finalized.
	Version   *int       `json:"version,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Default returns an empty draft with every section present.
func Default() Draft {
	return Draft{
		FamilyDetails: FamilyDetails{Children: []Child{}},
		Assets:        []Asset{},
		Beneficiaries: []Beneficiary{},
		Allocations:   []Allocation{},
	}
}

// Normalize replaces nil lists with empty ones so callers never nil-check.
func (d *Draft) Normalize() {
	if d.FamilyDetails.Children == nil {
		d.FamilyDetails.Children = []Child{}
	}
	if d.Assets == nil {
		d.Assets = []Asset{}
	}
	if d.Beneficiaries == nil {
		d.Beneficiaries = []Beneficiary{}
	}
	if d.Allocations == nil {
		d.Allocations = []Allocation{}
	}
}

// SectionDefault returns the default JSON payload of a single section.
func SectionDefault(s Section) (json.RawMessage, error) {
	m, err := ToMap(Default())
	if err != nil {
		return nil, err
	}
	v, ok := m[string(s)]
	if !ok {
		return nil, fmt.Errorf("unknown section %q", s)
	}
	return json.Marshal(v)
}

// ToMap converts a draft to its generic JSON object form.
func ToMap(d Draft) (map[string]any, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// MergeOntoDefault deep-merges loaded data over the default draft, so fields
// added to the default appear in drafts saved before they existed.
//
// Each section is decoded on its own. A singleton field or list item whose
// value does not fit its type is left at its default and its path is
// returned in dropped, so one bad value never costs the rest of the draft.
func MergeOntoDefault(loaded map[string]any) (d Draft, dropped []string, err error) {
	base, err := ToMap(Default())
	if err != nil {
		return Draft{}, nil, err
	}
	merged := DeepMerge(base, loaded)

	d = Default()
	drop := func(paths []string) { dropped = append(dropped, paths...) }

	drop(decodeFields(object(merged[string(SectionPersonalInfo)]), &d.PersonalInfo, "personalInfo."))

	family := object(merged[string(SectionFamilyDetails)])
	children, ok := family["children"]
	delete(family, "children")
	drop(decodeFields(family, &d.FamilyDetails, "familyDetails."))
	if ok {
		var bad []string
		d.FamilyDetails.Children, bad = decodeItems[Child](children, "familyDetails.children")
		drop(bad)
	}

	var bad []string
	d.Assets, bad = decodeItems[Asset](merged[string(SectionAssets)], string(SectionAssets))
	drop(bad)
	d.Beneficiaries, bad = decodeItems[Beneficiary](merged[string(SectionBeneficiaries)], string(SectionBeneficiaries))
	drop(bad)
	d.Allocations, bad = decodeItems[Allocation](merged[string(SectionAllocations)], string(SectionAllocations))
	drop(bad)

	drop(decodeFields(object(merged[string(SectionExecutor)]), &d.Executor, "executor."))

	meta := map[string]any{}
	for _, k := range []string{"version", "createdAt"} {
		if v, ok := merged[k]; ok {
			meta[k] = v
		}
	}
	drop(decodeFields(meta, &d, ""))

	d.Normalize()
	return d, dropped, nil
}

// object returns a shallow copy of v when it is a JSON object.
func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	out := make(map[string]any, len(m))
	for k, mv := range m {
		out[k] = mv
	}
	return out
}

// decodeFields sets dst one key at a time, skipping keys whose value does not
// decode into the matching field.
func decodeFields[T any](obj map[string]any, dst *T, prefix string) []string {
	var dropped []string
	for _, k := range slices.Sorted(maps.Keys(obj)) {
		raw, err := json.Marshal(map[string]any{k: obj[k]})
		if err == nil {
			var scratch T
			err = json.Unmarshal(raw, &scratch)
		}
		if err != nil {
			dropped = append(dropped, prefix+k)
			continue
		}
		_ = json.Unmarshal(raw, dst)
	}
	return dropped
}

// decodeItems keeps the elements of a JSON array that decode as T.
func decodeItems[T any](v any, path string) ([]T, []string) {
	list, _ := v.([]any)
	out := make([]T, 0, len(list))
	var dropped []string
	for i, item := range list {
		raw, err := json.Marshal(item)
		var t T
		if err == nil {
			err = json.Unmarshal(raw, &t)
		}
		if err != nil {
			dropped = append(dropped, fmt.Sprintf("%s[%d]", path, i))
			continue
		}
		out = append(out, t)
	}
	return out, dropped
}
