package will

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDraft() Draft {
	d := Default()
	d.Assets = []Asset{{
		ID:          "a1",
		Type:        AssetRealEstate,
		Description: "Flat in Pune",
		Value:       "500000",
		Details:     &RealEstateDetails{PropertyType: "residential", Address: "12 MG Road, Pune"},
	}}
	d.Beneficiaries = []Beneficiary{{ID: "b1", Name: "Jane Doe", Relationship: "Friend"}}
	d.FamilyDetails = FamilyDetails{
		MaritalStatus: Married,
		SpouseName:    "Asha Rao",
		Children:      []Child{{Name: "Ravi  Kumar Rao"}},
	}
	return d
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Asha Rao", "asha-rao"},
		{"Ravi  Kumar\tRao", "ravi-kumar-rao"},
		{"single", "single"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
			assert.Equal(t, Slug(tt.in), Slug(tt.in))
		})
	}
}

func TestResolveBeneficiaryName(t *testing.T) {
	d := sampleDraft()

	tests := []struct {
		name string
		id   string
		want string
	}{
		{"explicit", "b1", "Jane Doe"},
		{"spouse", "spouse-asha-rao", "Asha Rao (Spouse)"},
		{"child", "child-ravi-kumar-rao", "Ravi  Kumar Rao (Child)"},
		{"unknown", "b404", UnknownBeneficiary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := ResolveBeneficiaryName(tt.id, d.Beneficiaries, d.FamilyDetails)
			second := ResolveBeneficiaryName(tt.id, d.Beneficiaries, d.FamilyDetails)
			assert.Equal(t, tt.want, first)
			assert.Equal(t, first, second)
		})
	}
}

func TestResolveBeneficiaryName_SpouseOnlyWhenMarried(t *testing.T) {
	family := FamilyDetails{MaritalStatus: Divorced, SpouseName: "Asha Rao"}
	assert.Equal(t, UnknownBeneficiary, ResolveBeneficiaryName("spouse-asha-rao", nil, family))
}

func TestResolveAssetName(t *testing.T) {
	assets := []Asset{
		{ID: "a1", Type: AssetVehicle, Description: "Honda City"},
		{ID: "a2", Type: AssetJewelry},
	}
	assert.Equal(t, "Honda City", ResolveAssetName("a1", assets))
	assert.Equal(t, "Jewelry / Valuables", ResolveAssetName("a2", assets))
	assert.Equal(t, UnknownAsset, ResolveAssetName("missing", assets))
	assert.Equal(t, UnknownAsset, ResolveAssetName("a1", nil))
}

func TestBeneficiaryOptions_ExplicitFirst(t *testing.T) {
	d := sampleDraft()
	opts := BeneficiaryOptions(d.Beneficiaries, d.FamilyDetails)

	ids := make([]string, 0, len(opts))
	for _, o := range opts {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"b1", "spouse-asha-rao", "child-ravi-kumar-rao"}, ids)
	assert.False(t, opts[0].Implicit)
	assert.True(t, opts[1].Implicit)
}

func TestDeepMerge(t *testing.T) {
	initial := map[string]any{
		"personalInfo": map[string]any{"fullName": "", "city": ""},
		"assets":       []any{},
		"flag":         false,
	}

	t.Run("empty source is identity", func(t *testing.T) {
		got := DeepMerge(initial, map[string]any{})
		if diff := cmp.Diff(initial, got); diff != "" {
			t.Errorf("DeepMerge mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("loaded keys win and defaults survive", func(t *testing.T) {
		loaded := map[string]any{
			"personalInfo": map[string]any{"fullName": "Meera"},
			"assets":       []any{map[string]any{"id": "a1"}},
		}
		got := DeepMerge(initial, loaded)

		want := map[string]any{
			"personalInfo": map[string]any{"fullName": "Meera", "city": ""},
			"assets":       []any{map[string]any{"id": "a1"}},
			"flag":         false,
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("DeepMerge mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("scalar replaces map", func(t *testing.T) {
		got := DeepMerge(initial, map[string]any{"personalInfo": "gone"})
		assert.Equal(t, "gone", got["personalInfo"])
	})

	t.Run("inputs untouched", func(t *testing.T) {
		loaded := map[string]any{"personalInfo": map[string]any{"fullName": "Meera"}}
		_ = DeepMerge(initial, loaded)
		assert.Equal(t, "", initial["personalInfo"].(map[string]any)["fullName"])
	})
}

func TestMergeOntoDefault_OldDraftGainsNewFields(t *testing.T) {
	d, dropped, err := MergeOntoDefault(map[string]any{
		"personalInfo": map[string]any{"fullName": "Meera Iyer"},
	})
	require.NoError(t, err)
	assert.Empty(t, dropped)

	assert.Equal(t, "Meera Iyer", d.PersonalInfo.FullName)
	assert.NotNil(t, d.Assets)
	assert.NotNil(t, d.FamilyDetails.Children)
	assert.Nil(t, d.Version)
}

func TestMergeOntoDefault_BadValuesOnlyCostThemselves(t *testing.T) {
	d, dropped, err := MergeOntoDefault(map[string]any{
		"personalInfo": map[string]any{"fullName": "Meera Iyer", "dateOfBirth": 19800101},
		"familyDetails": map[string]any{
			"maritalStatus": "married",
			"spouseName":    "Arjun",
			"children":      []any{map[string]any{"name": 7}, map[string]any{"name": "Kavya"}},
		},
		"allocations": []any{
			map[string]any{"id": "x", "assetId": "a1", "beneficiaryId": "b1", "percentage": "60"},
			map[string]any{"id": "y", "assetId": "a1", "beneficiaryId": "b2", "percentage": 40},
		},
		"version": "two",
	})
	require.NoError(t, err)

	assert.Equal(t, "Meera Iyer", d.PersonalInfo.FullName)
	assert.Equal(t, "", d.PersonalInfo.DateOfBirth)
	assert.Equal(t, "Arjun", d.FamilyDetails.SpouseName)
	assert.Equal(t, []Child{{Name: "Kavya"}}, d.FamilyDetails.Children)
	require.Len(t, d.Allocations, 1)
	assert.Equal(t, "y", d.Allocations[0].ID)
	assert.Nil(t, d.Version)
	assert.ElementsMatch(t, []string{
		"personalInfo.dateOfBirth",
		"familyDetails.children[0]",
		"allocations[0]",
		"version",
	}, dropped)
}

func TestAssetJSON_DispatchesOnType(t *testing.T) {
	raw := `{"id":"a1","type":"bank_account","description":"SBI savings","value":250000,
		"details":{"bankName":"SBI","accountNumber":"12345678","accountType":"savings","make":"ignored"}}`

	var a Asset
	require.NoError(t, json.Unmarshal([]byte(raw), &a))

	assert.Equal(t, "250000", a.Value)
	details, ok := a.Details.(*BankAccountDetails)
	require.True(t, ok, "details decoded as %T", a.Details)
	assert.Equal(t, "SBI", details.BankName)

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"bankName":"SBI"`)
	assert.NotContains(t, string(out), "make")
}

func TestAssetJSON_UnknownTypeKeepsLoading(t *testing.T) {
	var a Asset
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","type":"boat","details":{"hull":"wood"}}`), &a))
	assert.Nil(t, a.Details)

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"details":{}`)
}

func TestValidateAsset(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateAsset(sampleDraft().Assets[0]))
	})

	t.Run("kind specific fields required", func(t *testing.T) {
		err := ValidateAsset(Asset{
			ID: "v1", Type: AssetVehicle, Description: "Car", Value: "100000",
			Details: &VehicleDetails{Make: "Maruti"},
		})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "details.model")
		assert.Contains(t, ve.Fields, "details.registrationNumber")
		assert.NotContains(t, ve.Fields, "details.make")
	})

	t.Run("negative value", func(t *testing.T) {
		err := ValidateAsset(Asset{Type: AssetOther, Description: "Art", Value: "-5", Details: &OtherDetails{}})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "value must be a non-negative number", ve.Fields["value"])
	})

	t.Run("list paths", func(t *testing.T) {
		err := ValidateAssets([]Asset{sampleDraft().Assets[0], {ID: "a2", Type: AssetJewelry, Value: "1", Details: &JewelryDetails{}}})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "assets[1].description")
		assert.Contains(t, ve.Fields, "assets[1].details.itemDescription")
	})
}

func TestValidateAllocations_SumRule(t *testing.T) {
	d := sampleDraft()

	t.Run("exactly 100 accepted", func(t *testing.T) {
		allocs := []Allocation{
			{ID: "x1", AssetID: "a1", BeneficiaryID: "b1", Percentage: 33.3},
			{ID: "x2", AssetID: "a1", BeneficiaryID: "spouse-asha-rao", Percentage: 33.3},
			{ID: "x3", AssetID: "a1", BeneficiaryID: "child-ravi-kumar-rao", Percentage: 33.4},
		}
		assert.NoError(t, ValidateAllocations(allocs, d))
	})

	t.Run("101 rejected", func(t *testing.T) {
		allocs := []Allocation{
			{ID: "x1", AssetID: "a1", BeneficiaryID: "b1", Percentage: 60},
			{ID: "x2", AssetID: "a1", BeneficiaryID: "spouse-asha-rao", Percentage: 41},
		}
		err := ValidateAllocations(allocs, d)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields["allocations[1].percentage"], "cannot exceed 100%")
	})

	t.Run("dangling references", func(t *testing.T) {
		allocs := []Allocation{{ID: "x1", AssetID: "nope", BeneficiaryID: "spouse-someone", Percentage: 10}}
		err := ValidateAllocations(allocs, d)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "allocations[0].assetId")
		assert.Contains(t, ve.Fields, "allocations[0].beneficiaryId")
	})
}

func TestValidateAllocationChange(t *testing.T) {
	d := sampleDraft()
	d.Allocations = []Allocation{
		{ID: "x1", AssetID: "a1", BeneficiaryID: "b1", Percentage: 60},
		{ID: "x2", AssetID: "a1", BeneficiaryID: "spouse-asha-rao", Percentage: 30},
	}

	assert.NoError(t, ValidateAllocationChange(Allocation{AssetID: "a1", BeneficiaryID: "child-ravi-kumar-rao", Percentage: 10}, d))
	assert.Error(t, ValidateAllocationChange(Allocation{AssetID: "a1", BeneficiaryID: "child-ravi-kumar-rao", Percentage: 11}, d))

	// editing x1 replaces its 60 rather than adding to it
	assert.NoError(t, ValidateAllocationChange(Allocation{ID: "x1", AssetID: "a1", BeneficiaryID: "b1", Percentage: 70}, d))
	assert.Error(t, ValidateAllocationChange(Allocation{ID: "x1", AssetID: "a1", BeneficiaryID: "b1", Percentage: 71}, d))
}

func TestValidateFamilyDetails(t *testing.T) {
	err := ValidateFamilyDetails(FamilyDetails{MaritalStatus: Married})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "spouseName is required", ve.Fields["spouseName"])

	assert.NoError(t, ValidateFamilyDetails(FamilyDetails{MaritalStatus: Single}))

	err = ValidateFamilyDetails(FamilyDetails{MaritalStatus: Single, Children: []Child{{Name: "Anu"}, {Name: "anu"}}})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "children[1].name")
}

func TestClearStaleSpouse(t *testing.T) {
	f := FamilyDetails{MaritalStatus: Widowed, SpouseName: "Asha Rao"}
	f.ClearStaleSpouse()
	assert.Empty(t, f.SpouseName)

	f = FamilyDetails{MaritalStatus: Married, SpouseName: "Asha Rao"}
	f.ClearStaleSpouse()
	assert.Equal(t, "Asha Rao", f.SpouseName)
}

func TestValidateExecutor(t *testing.T) {
	primary := ExecutorPerson{
		Name: "Kiran Shah", FatherName: "Mohan Shah", Aadhaar: "123412341234",
		Address: "4 Park Street, Kolkata", Email: "kiran@example.com", Mobile: "9876543210",
	}

	assert.NoError(t, ValidateExecutor(Executor{PrimaryExecutor: primary, City: "Kolkata", State: "WB"}))

	err := ValidateExecutor(Executor{PrimaryExecutor: primary, HasSecondExecutor: true, City: "Kolkata", State: "WB"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "secondExecutor.name")
	assert.Contains(t, ve.Fields, "secondExecutor.aadhaar")

	bad := primary
	bad.Aadhaar = "1234"
	err = ValidateExecutor(Executor{PrimaryExecutor: bad, City: "Kolkata", State: "WB"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Aadhaar number must be exactly 12 digits", ve.Fields["primaryExecutor.aadhaar"])
}

func TestValidatePersonalInfo_Minor(t *testing.T) {
	p := PersonalInfo{
		FullName: "Meera Iyer", FatherName: "R Iyer", DateOfBirth: "2012-01-01",
		Aadhaar: "123412341234", Address: "22 Residency Road", City: "Bengaluru",
		State: "KA", Email: "meera@example.com", Mobile: "9876543210",
	}
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	err := ValidatePersonalInfo(p, asOf)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "dateOfBirth")

	p.DateOfBirth = "1970-05-20"
	assert.NoError(t, ValidatePersonalInfo(p, asOf))
}
