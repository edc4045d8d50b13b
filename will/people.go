package will

// PersonalInfo describes the testator.
type PersonalInfo struct {
	FullName    string `json:"fullName" validate:"required,min=2"`
	FatherName  string `json:"fatherName" validate:"required"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,isodate"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
	Religion    string `json:"religion"`
	Aadhaar     string `json:"aadhaar" validate:"required,aadhaar"`
	PAN         string `json:"pan" validate:"omitempty,pan"`
	Address     string `json:"address" validate:"required,min=10"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state" validate:"required"`
	Pincode     string `json:"pincode" validate:"omitempty,pincode"`
	Email       string `json:"email" validate:"required,email"`
	Mobile      string `json:"mobile" validate:"required,mobile"`
}

type MaritalStatus string

const (
	Single   MaritalStatus = "single"
	Married  MaritalStatus = "married"
	Divorced MaritalStatus = "divorced"
	Widowed  MaritalStatus = "widowed"
)

type FamilyDetails struct {
	MaritalStatus MaritalStatus `json:"maritalStatus" validate:"required,oneof=single married divorced widowed"`
	SpouseName    string        `json:"spouseName" validate:"required_if=MaritalStatus married"`
	Children      []Child       `json:"children" validate:"dive"`
}

type Child struct {
	Name        string `json:"name" validate:"required"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,isodate"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
}

// ClearStaleSpouse drops the spouse name whenever the status is not married,
// so an old spouse id cannot keep resolving in allocations.
func (f *FamilyDetails) ClearStaleSpouse() {
	if f.MaritalStatus != Married {
		f.SpouseName = ""
	}
}

// ClearStaleSpouseFields is ClearStaleSpouse for the generic form of the
// section, which may be half filled in.
func ClearStaleSpouseFields(obj map[string]any) {
	if status, _ := obj["maritalStatus"].(string); status != string(Married) {
		obj["spouseName"] = ""
	}
}

// Beneficiary is an explicitly entered heir.
type Beneficiary struct {
	ID           string `json:"id"`
	Name         string `json:"name" validate:"required,min=2"`
	Relationship string `json:"relationship" validate:"required"`
}

// Allocation assigns a percentage of one asset to one beneficiary.
// BeneficiaryID may be a synthesized spouse/child id.
type Allocation struct {
	ID            string  `json:"id"`
	AssetID       string  `json:"assetId" validate:"required"`
	BeneficiaryID string  `json:"beneficiaryId" validate:"required"`
	Percentage    float64 `json:"percentage" validate:"gt=0,lte=100"`
}

type ExecutorPerson struct {
	Name       string `json:"name" validate:"required,min=2"`
	FatherName string `json:"fatherName" validate:"required"`
	Aadhaar    string `json:"aadhaar" validate:"required,aadhaar"`
	Address    string `json:"address" validate:"required,min=10"`
	Email      string `json:"email" validate:"required,email"`
	Mobile     string `json:"mobile" validate:"required,mobile"`
}

// Executor is the appointment section. SecondExecutor only matters when
// HasSecondExecutor is set.
type Executor struct {
	PrimaryExecutor     ExecutorPerson `json:"primaryExecutor"`
	HasSecondExecutor   bool           `json:"hasSecondExecutor"`
	SecondExecutor      ExecutorPerson `json:"secondExecutor" validate:"-"`
	SpecialInstructions string         `json:"specialInstructions" validate:"max=2000"`
	City                string         `json:"city" validate:"required"`
	State               string         `json:"state" validate:"required"`
}

// Exists reports whether a primary executor has been named.
func (e Executor) Exists() bool {
	return e.PrimaryExecutor.Name != ""
}
