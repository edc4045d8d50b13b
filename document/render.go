// Package document renders a draft into the fixed will template and exports
// it as a single-page PDF.
package document

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"willdraft-go/will"
)

const Title = "LAST WILL AND TESTAMENT"

// Section keys, in document order.
const (
	KeyPreamble      = "preamble"
	KeyFamily        = "family"
	KeyAssets        = "assets"
	KeyBeneficiaries = "beneficiaries"
	KeyDisposition   = "disposition"
	KeyResidue       = "residue"
	KeyExecutor      = "executor"
	KeyInstructions  = "instructions"
	KeyAttestation   = "attestation"
)

type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type Section struct {
	Key        string   `json:"key"`
	Heading    string   `json:"heading,omitempty"`
	Paragraphs []string `json:"paragraphs"`
	Table      *Table   `json:"table,omitempty"`
}

type Document struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Section returns the section with key, if present.
func (d Document) Section(key string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

// Text lays the document out as plain text.
func (d Document) Text() string {
	var b strings.Builder
	b.WriteString(d.Title)
	b.WriteString("\n")
	for _, s := range d.Sections {
		b.WriteString("\n")
		if s.Heading != "" {
			b.WriteString(strings.ToUpper(s.Heading))
			b.WriteString("\n\n")
		}
		for _, p := range s.Paragraphs {
			b.WriteString(p)
			b.WriteString("\n")
		}
		if s.Table != nil {
			b.WriteString(s.Table.text())
		}
	}
	return b.String()
}

func (t Table) text() string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.Headers, "\t"))
	for _, r := range t.Rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	_ = w.Flush()
	return buf.String()
}

// Render fills the will template from d. It never fails: anything missing is
// shown as a bracketed placeholder and sections that need data which is not
// there are left out. asOf dates the document and fixes the testator's age.
func Render(d will.Draft, asOf time.Time) Document {
	doc := Document{Title: Title}
	doc.Sections = append(doc.Sections, preamble(d.PersonalInfo, asOf), family(d.FamilyDetails))
	doc.Sections = append(doc.Sections, assets(d.Assets), beneficiaries(d))

	if t, ok := dispositionTable(d); ok {
		doc.Sections = append(doc.Sections, Section{
			Key:     KeyDisposition,
			Heading: "Disposition of Assets",
			Paragraphs: []string{
				"I give and bequeath my assets to the following beneficiaries in the shares set out below:",
			},
			Table: t,
		})
	}

	doc.Sections = append(doc.Sections, Section{
		Key:     KeyResidue,
		Heading: "Residuary Estate",
		Paragraphs: []string{
			"Any asset, or any share of an asset, not specifically bequeathed in this Will, including any " +
				"percentage of an asset left unallocated above, shall form my residuary estate and shall pass " +
				"to my legal heirs in accordance with the law of succession applicable to me.",
		},
	})

	if d.Executor.Exists() {
		doc.Sections = append(doc.Sections, executor(d.Executor))
	}
	if text := strings.TrimSpace(d.Executor.SpecialInstructions); text != "" {
		doc.Sections = append(doc.Sections, Section{
			Key:        KeyInstructions,
			Heading:    "Special Instructions",
			Paragraphs: []string{text},
		})
	}

	doc.Sections = append(doc.Sections, attestation(d, asOf))
	return doc
}

func or(v, placeholder string) string {
	if strings.TrimSpace(v) == "" {
		return placeholder
	}
	return v
}

func relation(gender string) string {
	switch gender {
	case "male":
		return "son of"
	case "female":
		return "daughter of"
	default:
		return "son/daughter of"
	}
}

func preamble(p will.PersonalInfo, asOf time.Time) Section {
	age := "[Age]"
	if strings.TrimSpace(p.DateOfBirth) != "" {
		age = Age(p.DateOfBirth, asOf)
	}

	place := []string{or(p.Address, "[Address]")}
	for _, part := range []string{p.City, p.State, p.Pincode} {
		if part != "" {
			place = append(place, part)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I, %s, %s %s, aged %s years",
		or(p.FullName, "[Testator Name]"), relation(p.Gender), or(p.FatherName, "[Father's Name]"), age)
	if p.Religion != "" {
		fmt.Fprintf(&b, ", by religion %s", p.Religion)
	}
	fmt.Fprintf(&b, ", residing at %s, holding Aadhaar number %s",
		strings.Join(place, ", "), maskAadhaar(p.Aadhaar))
	if p.PAN != "" {
		fmt.Fprintf(&b, " and PAN %s", p.PAN)
	}
	b.WriteString(", being of sound mind and memory and acting of my own free will, do hereby make, " +
		"publish and declare this to be my last Will and Testament, and hereby revoke all wills and " +
		"codicils made by me before this date.")

	return Section{Key: KeyPreamble, Paragraphs: []string{b.String()}}
}

// maskAadhaar keeps the last four digits, the way the number is printed on
// e-Aadhaar letters.
func maskAadhaar(n string) string {
	if len(n) != 12 {
		return or(n, "[Aadhaar Number]")
	}
	return "XXXX XXXX " + n[8:]
}

func family(f will.FamilyDetails) Section {
	var status string
	switch f.MaritalStatus {
	case will.Married:
		status = fmt.Sprintf("I am married to %s.", or(f.SpouseName, "[Spouse Name]"))
	case will.Single:
		status = "I am unmarried."
	case will.Divorced:
		status = "I am divorced."
	case will.Widowed:
		status = "I am widowed."
	default:
		status = "[Marital Status]"
	}

	paras := []string{status}
	var names []string
	for _, c := range f.Children {
		if strings.TrimSpace(c.Name) != "" {
			names = append(names, c.Name)
		}
	}
	if len(names) == 0 {
		paras = append(paras, "I have no children.")
	} else {
		paras = append(paras, "I have the following children:")
		for i, n := range names {
			paras = append(paras, fmt.Sprintf("%d. %s", i+1, n))
		}
	}
	return Section{Key: KeyFamily, Heading: "Family Details", Paragraphs: paras}
}

func assets(list []will.Asset) Section {
	s := Section{Key: KeyAssets, Heading: "Schedule of Assets"}
	if len(list) == 0 {
		s.Paragraphs = []string{"[No assets listed]"}
		return s
	}
	s.Paragraphs = append(s.Paragraphs, "I declare that I am the absolute owner of the following assets:")
	for i, a := range list {
		line := fmt.Sprintf("%d. %s (%s), estimated value %s", i+1, a.DisplayName(), a.Type.Label(), FormatRupees(a.Value))
		if extra := assetSummary(a.Details); extra != "" {
			line += "; " + extra
		}
		s.Paragraphs = append(s.Paragraphs, line)
	}
	return s
}

func assetSummary(d will.AssetDetails) string {
	var parts []string
	add := func(label, v string) {
		if strings.TrimSpace(v) != "" {
			parts = append(parts, label+" "+v)
		}
	}
	switch v := d.(type) {
	case *will.BankAccountDetails:
		add("held with", v.BankName)
		add("account no.", v.AccountNumber)
		add("branch", v.Branch)
	case *will.RealEstateDetails:
		add("situated at", v.Address)
		add("survey no.", v.SurveyNumber)
		add("area", v.Area)
	case *will.VehicleDetails:
		add("make", strings.TrimSpace(v.Make+" "+v.Model))
		add("registration no.", v.RegistrationNumber)
	case *will.StocksDetails:
		add("held through", v.BrokerName)
		add("demat account", v.DematAccountNumber)
	case *will.InsuranceDetails:
		add("issued by", v.Insurer)
		add("policy no.", v.PolicyNumber)
	case *will.JewelryDetails:
		add("comprising", v.ItemDescription)
		add("kept at", v.StorageLocation)
	case *will.OtherDetails:
		add("notes:", v.Notes)
	}
	return strings.Join(parts, ", ")
}

func beneficiaries(d will.Draft) Section {
	s := Section{Key: KeyBeneficiaries, Heading: "Beneficiaries"}
	opts := will.BeneficiaryOptions(d.Beneficiaries, d.FamilyDetails)
	if len(opts) == 0 {
		s.Paragraphs = []string{"[No beneficiaries named]"}
		return s
	}
	s.Paragraphs = append(s.Paragraphs, "The beneficiaries under this Will are:")
	for i, o := range opts {
		s.Paragraphs = append(s.Paragraphs, fmt.Sprintf("%d. %s, %s", i+1, o.Name, or(o.Relationship, "[Relationship]")))
	}
	return s
}

// dispositionTable needs assets, at least one beneficiary (explicit or
// implied by family details) and allocations.
func dispositionTable(d will.Draft) (*Table, bool) {
	if len(d.Assets) == 0 || len(d.Allocations) == 0 {
		return nil, false
	}
	if len(will.BeneficiaryOptions(d.Beneficiaries, d.FamilyDetails)) == 0 {
		return nil, false
	}

	t := &Table{Headers: []string{"Asset", "Beneficiary", "Share"}}
	for _, r := range will.ResolveAllocations(d) {
		t.Rows = append(t.Rows, []string{r.AssetName, r.BeneficiaryName, FormatPercent(r.Percentage)})
	}
	return t, true
}

func executor(e will.Executor) Section {
	p := e.PrimaryExecutor
	paras := []string{fmt.Sprintf(
		"I appoint %s, son/daughter of %s, residing at %s, as the Executor of this Will, to administer "+
			"my estate and give effect to its provisions.",
		p.Name, or(p.FatherName, "[Father's Name]"), or(p.Address, "[Address]"))}

	if e.HasSecondExecutor && strings.TrimSpace(e.SecondExecutor.Name) != "" {
		s := e.SecondExecutor
		paras = append(paras, fmt.Sprintf(
			"I further appoint %s, son/daughter of %s, residing at %s, as a second Executor, to act "+
				"jointly with the Executor named above or alone if that Executor is unable or unwilling to act.",
			s.Name, or(s.FatherName, "[Father's Name]"), or(s.Address, "[Address]")))
	}
	return Section{Key: KeyExecutor, Heading: "Appointment of Executor", Paragraphs: paras}
}

func attestation(d will.Draft, asOf time.Time) Section {
	return Section{
		Key:     KeyAttestation,
		Heading: "Signature and Attestation",
		Paragraphs: []string{
			fmt.Sprintf("IN WITNESS WHEREOF, I have signed this Will at %s, %s on %s.",
				or(d.Executor.City, "[City]"), or(d.Executor.State, "[State]"), asOf.Format("2 January 2006")),
			"Testator: " + or(d.PersonalInfo.FullName, "[Testator Name]") + "    Signature: ____________________",
			"Signed by the Testator in our presence, and by us in the presence of the Testator and of each other.",
			"Witness 1: Name ____________________  Address ____________________  Signature ____________",
			"Witness 2: Name ____________________  Address ____________________  Signature ____________",
		},
	}
}

// FormatPercent prints a share without trailing zeros, e.g. 60 -> "60%".
func FormatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}
