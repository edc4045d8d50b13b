package will

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"willdraft-go/utils"
)

// ValidationError carries field-level messages keyed by JSON path, for
// example "assets[1].details.bankName".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation failed: " + strings.Join(keys, ", ")
}

type fieldErrors map[string]string

func (f fieldErrors) add(prefix string, err error) {
	if err == nil {
		return
	}
	for k, v := range utils.FormatValidationError(err) {
		f[prefix+k] = v
	}
}

func (f fieldErrors) merge(prefix string, err error) {
	if err == nil {
		return
	}
	if ve, ok := err.(*ValidationError); ok {
		for k, v := range ve.Fields {
			f[prefix+k] = v
		}
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

var hundred = decimal.NewFromInt(100)

// ValidatePersonalInfo also requires the testator to be an adult at asOf.
func ValidatePersonalInfo(p PersonalInfo, asOf time.Time) error {
	errs := fieldErrors{}
	errs.add("", utils.ValidateStruct(p))
	if _, taken := errs["dateOfBirth"]; !taken {
		if dob, err := time.Parse("2006-01-02", p.DateOfBirth); err == nil && !utils.IsAdult(dob, asOf) {
			errs["dateOfBirth"] = "Testator must be at least 18 years old"
		}
	}
	return errs.err()
}

// ValidateFamilyDetails rejects children whose names slug to the same id,
// since their synthesized beneficiary ids would collide.
func ValidateFamilyDetails(f FamilyDetails) error {
	errs := fieldErrors{}
	errs.add("", utils.ValidateStruct(f))

	seen := make(map[string]bool, len(f.Children))
	for i, c := range f.Children {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		id := ChildID(c.Name)
		if seen[id] {
			errs[fmt.Sprintf("children[%d].name", i)] = "Each child must have a distinct name"
		}
		seen[id] = true
	}
	return errs.err()
}

// ValidateAsset checks the common fields and then the details payload that
// belongs to the asset's type.
func ValidateAsset(a Asset) error {
	errs := fieldErrors{}
	errs.add("", utils.ValidateStruct(a))
	if !a.Type.Valid() {
		return errs.err()
	}
	if a.Details == nil {
		errs["details"] = "details is required"
		return errs.err()
	}
	errs.add("details.", utils.ValidateStruct(a.Details))
	return errs.err()
}

func ValidateAssets(assets []Asset) error {
	errs := fieldErrors{}
	for i, a := range assets {
		errs.merge(fmt.Sprintf("assets[%d].", i), ValidateAsset(a))
	}
	return errs.err()
}

func ValidateBeneficiary(b Beneficiary) error {
	errs := fieldErrors{}
	errs.add("", utils.ValidateStruct(b))
	return errs.err()
}

func ValidateBeneficiaries(beneficiaries []Beneficiary) error {
	errs := fieldErrors{}
	for i, b := range beneficiaries {
		errs.merge(fmt.Sprintf("beneficiaries[%d].", i), ValidateBeneficiary(b))
	}
	return errs.err()
}

// ValidateAllocations checks the whole allocation list against the draft's
// assets, beneficiaries and family. The first allocation that takes an
// asset's total past 100% is flagged.
func ValidateAllocations(allocations []Allocation, d Draft) error {
	errs := fieldErrors{}
	totals := make(map[string]decimal.Decimal)

	for i, a := range allocations {
		prefix := fmt.Sprintf("allocations[%d].", i)
		itemErrs := checkAllocationRefs(a, d)
		for k, v := range itemErrs {
			errs[prefix+k] = v
		}
		if len(itemErrs) > 0 {
			continue
		}

		sum := totals[a.AssetID].Add(decimal.NewFromFloat(a.Percentage))
		totals[a.AssetID] = sum
		if sum.GreaterThan(hundred) {
			if _, flagged := errs[prefix+"percentage"]; !flagged {
				errs[prefix+"percentage"] = overAllocated(a.AssetID, d.Assets, sum)
			}
		}
	}
	return errs.err()
}

// ValidateAllocationChange checks a single added or edited allocation. An
// existing allocation with the same id is treated as being replaced.
func ValidateAllocationChange(candidate Allocation, d Draft) error {
	errs := fieldErrors(checkAllocationRefs(candidate, d))
	if len(errs) > 0 {
		return errs.err()
	}

	sum := decimal.NewFromFloat(candidate.Percentage)
	for _, a := range d.Allocations {
		if a.AssetID != candidate.AssetID || (candidate.ID != "" && a.ID == candidate.ID) {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(a.Percentage))
	}
	if sum.GreaterThan(hundred) {
		errs["percentage"] = overAllocated(candidate.AssetID, d.Assets, sum)
	}
	return errs.err()
}

func checkAllocationRefs(a Allocation, d Draft) map[string]string {
	errs := fieldErrors{}
	errs.add("", utils.ValidateStruct(a))
	if _, bad := errs["assetId"]; !bad {
		if _, ok := LookupAsset(a.AssetID, d.Assets); !ok {
			errs["assetId"] = "Selected asset does not exist"
		}
	}
	if _, bad := errs["beneficiaryId"]; !bad {
		if _, ok := LookupBeneficiary(a.BeneficiaryID, d.Beneficiaries, d.FamilyDetails); !ok {
			errs["beneficiaryId"] = "Selected beneficiary does not exist"
		}
	}
	return errs
}

func overAllocated(assetID string, assets []Asset, sum decimal.Decimal) string {
	return fmt.Sprintf("Total allocation for %s cannot exceed 100%% (currently %s%%)",
		ResolveAssetName(assetID, assets), sum.String())
}

// ValidateExecutor requires the second executor only when the flag is set.
func ValidateExecutor(e Executor) error {
	errs := fieldErrors{}
	errs.add("", utils.ValidateStruct(e))
	if e.HasSecondExecutor {
		errs.add("secondExecutor.", utils.ValidateStruct(e.SecondExecutor))
	}
	return errs.err()
}

// ValidateDraft runs every step's checks, with keys prefixed by section, for
// example "executor.primaryExecutor.name". Lists keep their own
// "assets[0]." style prefixes.
func ValidateDraft(d Draft, asOf time.Time) error {
	errs := fieldErrors{}
	errs.merge("personalInfo.", ValidatePersonalInfo(d.PersonalInfo, asOf))
	errs.merge("familyDetails.", ValidateFamilyDetails(d.FamilyDetails))
	errs.merge("", ValidateAssets(d.Assets))
	errs.merge("", ValidateBeneficiaries(d.Beneficiaries))
	errs.merge("", ValidateAllocations(d.Allocations, d))
	errs.merge("executor.", ValidateExecutor(d.Executor))
	return errs.err()
}
