package will

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type AssetType string

const (
	AssetBankAccount AssetType = "bank_account"
	AssetRealEstate  AssetType = "real_estate"
	AssetVehicle     AssetType = "vehicle"
	AssetStocks      AssetType = "stocks"
	AssetInsurance   AssetType = "insurance"
	AssetJewelry     AssetType = "jewelry"
	AssetOther       AssetType = "other"
)

var assetLabels = map[AssetType]string{
	AssetBankAccount: "Bank Account",
	AssetRealEstate:  "Real Estate",
	AssetVehicle:     "Vehicle",
	AssetStocks:      "Stocks / Investments",
	AssetInsurance:   "Insurance Policy",
	AssetJewelry:     "Jewelry / Valuables",
	AssetOther:       "Other Asset",
}

// Label is the human name of the asset kind.
func (t AssetType) Label() string {
	if l, ok := assetLabels[t]; ok {
		return l
	}
	return "Asset"
}

func (t AssetType) Valid() bool {
	_, ok := assetLabels[t]
	return ok
}

// AssetDetails is the kind-specific payload of an Asset. Each asset type has
// exactly one implementation.
type AssetDetails interface {
	Kind() AssetType
}

type BankAccountDetails struct {
	BankName      string `json:"bankName" validate:"required"`
	AccountNumber string `json:"accountNumber" validate:"required,numeric,min=6,max=20"`
	AccountType   string `json:"accountType" validate:"required,oneof=savings current fixed_deposit recurring_deposit other"`
	Branch        string `json:"branch"`
	IFSC          string `json:"ifsc" validate:"omitempty,len=11"`
}

type RealEstateDetails struct {
	PropertyType string `json:"propertyType" validate:"required,oneof=residential commercial agricultural plot other"`
	Address      string `json:"address" validate:"required,min=10"`
	SurveyNumber string `json:"surveyNumber"`
	Area         string `json:"area"`
}

type VehicleDetails struct {
	Make               string `json:"make" validate:"required"`
	Model              string `json:"model" validate:"required"`
	RegistrationNumber string `json:"registrationNumber" validate:"required"`
	Year               string `json:"year" validate:"omitempty,numeric,len=4"`
}

type StocksDetails struct {
	BrokerName         string `json:"brokerName" validate:"required"`
	DematAccountNumber string `json:"dematAccountNumber" validate:"required"`
	Holdings           string `json:"holdings"`
}

type InsuranceDetails struct {
	Insurer      string `json:"insurer" validate:"required"`
	PolicyNumber string `json:"policyNumber" validate:"required"`
	PolicyType   string `json:"policyType"`
	SumAssured   string `json:"sumAssured" validate:"omitempty,amount"`
}

type JewelryDetails struct {
	ItemDescription string `json:"itemDescription" validate:"required"`
	Weight          string `json:"weight"`
	StorageLocation string `json:"storageLocation"`
}

type OtherDetails struct {
	Notes string `json:"notes"`
}

func (BankAccountDetails) Kind() AssetType { return AssetBankAccount }
func (RealEstateDetails) Kind() AssetType  { return AssetRealEstate }
func (VehicleDetails) Kind() AssetType     { return AssetVehicle }
func (StocksDetails) Kind() AssetType      { return AssetStocks }
func (InsuranceDetails) Kind() AssetType   { return AssetInsurance }
func (JewelryDetails) Kind() AssetType     { return AssetJewelry }
func (OtherDetails) Kind() AssetType       { return AssetOther }

func newDetails(t AssetType) AssetDetails {
	switch t {
	case AssetBankAccount:
		return &BankAccountDetails{}
	case AssetRealEstate:
		return &RealEstateDetails{}
	case AssetVehicle:
		return &VehicleDetails{}
	case AssetStocks:
		return &StocksDetails{}
	case AssetInsurance:
		return &InsuranceDetails{}
	case AssetJewelry:
		return &JewelryDetails{}
	case AssetOther:
		return &OtherDetails{}
	}
	return nil
}

// Asset is one item of the estate. Details always matches Type after
// decoding; a payload with an unknown type decodes with nil Details and fails
// validation instead of failing the whole draft load.
type Asset struct {
	ID          string       `json:"id"`
	Type        AssetType    `json:"type" validate:"required,oneof=bank_account real_estate vehicle stocks insurance jewelry other"`
	Description string       `json:"description" validate:"required"`
	Value       string       `json:"value" validate:"required,amount"`
	Details     AssetDetails `json:"details" validate:"-"`
}

type assetWire struct {
	ID          string          `json:"id"`
	Type        AssetType       `json:"type"`
	Description string          `json:"description"`
	Value       json.RawMessage `json:"value,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
}

func (a Asset) MarshalJSON() ([]byte, error) {
	details := any(map[string]any{})
	if a.Details != nil {
		details = a.Details
	}
	return json.Marshal(struct {
		ID          string    `json:"id"`
		Type        AssetType `json:"type"`
		Description string    `json:"description"`
		Value       string    `json:"value"`
		Details     any       `json:"details"`
	}{a.ID, a.Type, a.Description, a.Value, details})
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	var w assetWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	value, err := decodeAmount(w.Value)
	if err != nil {
		return fmt.Errorf("asset %q value: %w", w.ID, err)
	}

	*a = Asset{ID: w.ID, Type: w.Type, Description: w.Description, Value: value}

	details := newDetails(w.Type)
	if details == nil {
		return nil
	}
	if len(w.Details) > 0 && !bytes.Equal(w.Details, []byte("null")) {
		if err := json.Unmarshal(w.Details, details); err != nil {
			return fmt.Errorf("asset %q details: %w", w.ID, err)
		}
	}
	a.Details = details
	return nil
}

// decodeAmount accepts a monetary value sent either as a JSON string or a
// JSON number and returns its textual form.
func decodeAmount(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// DisplayName is the description, or the kind label when none was given.
func (a Asset) DisplayName() string {
	if a.Description != "" {
		return a.Description
	}
	return a.Type.Label()
}
