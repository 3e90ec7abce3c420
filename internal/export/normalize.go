package export

import (
	"strconv"
	"strings"
	"unicode"
)

// ExportRow is the flattened, canonical representation of one candidate.
// Numeric fields are pointers so that "missing" and zero stay distinct.
type ExportRow struct {
	VerificationID        int64
	UniqueCode            string
	FullName              string
	Email                 string
	Phone                 string
	Age                   *int
	Gender                string
	Domicile              string
	MaritalStatus         string
	JapaneseLevel         string
	LPKName               string
	EnglishCertType       string
	EnglishScore          *float64
	Education             string
	Major                 string
	LastPosition          string
	ExpectedSalary        *int64
	AvailableFrom         string
	VerificationStatus    string
	VerifiedAt            string
	TotalExperienceMonths *int
	JapanExperienceMonths *int
	Skills                string
	GoldenSkill           string
	JobFieldTags          string
	PreferredIndustries   string
	Interests             string
	CompanyPreferences    string
}

// Normalize merges a summary with its (possibly nil) detail.
//
// Summary fields are copied first. A present detail then overrides contact
// fields and the japan experience value; the summary's japan experience is
// only used when no detail exists.
func Normalize(s CandidateSummary, d *CandidateDetail) ExportRow {
	row := ExportRow{
		VerificationID:        s.VerificationID,
		FullName:              strings.TrimSpace(s.FullName),
		Age:                   s.Age,
		Gender:                s.Gender,
		Domicile:              s.Domicile,
		MaritalStatus:         s.MaritalStatus,
		JapaneseLevel:         s.JapaneseLevel,
		LPKName:               s.LPKName,
		EnglishCertType:       s.EnglishCertType,
		EnglishScore:          s.EnglishScore,
		Education:             s.Education,
		Major:                 s.Major,
		LastPosition:          s.LastPosition,
		ExpectedSalary:        s.ExpectedSalary,
		AvailableFrom:         s.AvailableFrom,
		VerificationStatus:    s.VerificationStatus,
		VerifiedAt:            s.VerifiedAt,
		TotalExperienceMonths: s.TotalExperienceMonths,
		JapanExperienceMonths: s.JapanExperienceMonths,
		UniqueCode:            GenerateUniqueCode(s.FullName, s.VerificationID),
		Skills:                joinSkillNames(s.Skills),
	}

	if d == nil {
		return row
	}

	v := d.Verification
	row.Email = v.Email
	row.Phone = v.Phone
	// The listing's japan experience value is unreliable; the detail's
	// duration is authoritative whenever a detail exists, even when nil.
	row.JapanExperienceMonths = v.JapanExperienceDuration
	row.JobFieldTags = strings.Join(v.JobFieldTags, ", ")
	row.PreferredIndustries = strings.Join(v.PreferredIndustries, ", ")
	row.GoldenSkill = v.GoldenSkill

	if d.Onboarding != nil {
		row.Interests = strings.Join(d.Onboarding.Interests, ", ")
		row.CompanyPreferences = strings.Join(d.Onboarding.CompanyPreferences, ", ")
	}

	if len(d.Skills) > 0 {
		names := make([]string, 0, len(d.Skills))
		for _, sk := range d.Skills {
			names = append(names, sk.Name)
		}
		row.Skills = joinSkillNames(names)
	}

	return row
}

// NormalizeAll normalizes every enriched pair, preserving order.
func NormalizeAll(items []Enriched) []ExportRow {
	rows := make([]ExportRow, len(items))
	for i, it := range items {
		rows[i] = Normalize(it.Summary, it.Detail)
	}
	return rows
}

// CleanSkillName strips a trailing parenthesised segment, and anything after
// it, from a skill name: "Welding (日本語)" -> "Welding".
func CleanSkillName(name string) string {
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

func joinSkillNames(names []string) string {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		if c := CleanSkillName(n); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	return strings.Join(cleaned, ", ")
}

// GenerateUniqueCode builds the candidate code: the first three letters of
// the name (letters only, upper-cased, padded with 'X') followed by the
// verification id.
//
//	GenerateUniqueCode("Budi Santoso", 42) == "BUD42"
//	GenerateUniqueCode("Al", 7)            == "ALX7"
func GenerateUniqueCode(name string, verificationID int64) string {
	prefix := make([]rune, 0, 3)
	for _, r := range name {
		if len(prefix) == 3 {
			break
		}
		if isASCIILetter(r) {
			prefix = append(prefix, unicode.ToUpper(r))
		}
	}
	for len(prefix) < 3 {
		prefix = append(prefix, 'X')
	}
	return string(prefix) + strconv.FormatInt(verificationID, 10)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
