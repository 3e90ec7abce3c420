package export

import (
	"strconv"
	"strings"
)

// ExportColumn is a catalog entry for a selectable output column.
type ExportColumn struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Default bool   `json:"default"`
	Group   string `json:"group"`
}

// Column groups, in display order.
const (
	GroupIdentity      = "Identity"
	GroupContact       = "Contact"
	GroupQualification = "Qualification"
	GroupExperience    = "Experience"
	GroupPreferences   = "Preferences"
	GroupVerification  = "Verification"
)

// enhancedColumns is the full catalog, in default output order.
var enhancedColumns = []ExportColumn{
	{Key: "unique_code", Label: "Unique Code", Default: true, Group: GroupIdentity},
	{Key: "full_name", Label: "Full Name", Default: true, Group: GroupIdentity},
	{Key: "age", Label: "Age", Default: true, Group: GroupIdentity},
	{Key: "gender", Label: "Gender", Default: true, Group: GroupIdentity},
	{Key: "domicile", Label: "Domicile", Default: true, Group: GroupIdentity},
	{Key: "marital_status", Label: "Marital Status", Group: GroupIdentity},
	{Key: "email", Label: "Email", Default: true, Group: GroupContact},
	{Key: "phone", Label: "Phone", Default: true, Group: GroupContact},
	{Key: "japanese_level", Label: "Japanese Level", Default: true, Group: GroupQualification},
	{Key: "lpk_name", Label: "LPK Name", Group: GroupQualification},
	{Key: "english_cert_type", Label: "English Certificate", Group: GroupQualification},
	{Key: "english_score", Label: "English Score", Group: GroupQualification},
	{Key: "education", Label: "Education", Default: true, Group: GroupQualification},
	{Key: "major", Label: "Major", Group: GroupQualification},
	{Key: "skills", Label: "Skills", Default: true, Group: GroupQualification},
	{Key: "golden_skill", Label: "Golden Skill", Group: GroupQualification},
	{Key: "last_position", Label: "Last Position", Group: GroupExperience},
	{Key: "total_experience_months", Label: "Total Experience (months)", Group: GroupExperience},
	{Key: "japan_experience_months", Label: "Japan Experience (months)", Default: true, Group: GroupExperience},
	{Key: "job_field_tags", Label: "Job Fields", Group: GroupPreferences},
	{Key: "preferred_industries", Label: "Preferred Industries", Group: GroupPreferences},
	{Key: "interests", Label: "Interests", Group: GroupPreferences},
	{Key: "company_preferences", Label: "Company Preferences", Group: GroupPreferences},
	{Key: "expected_salary", Label: "Expected Salary", Group: GroupPreferences},
	{Key: "available_from", Label: "Available From", Group: GroupPreferences},
	{Key: "verification_id", Label: "Verification ID", Group: GroupVerification},
	{Key: "verification_status", Label: "Verification Status", Group: GroupVerification},
	{Key: "verified_at", Label: "Verified At", Group: GroupVerification},
}

// basicKeys are the summary-only columns offered by basic mode.
var basicKeys = []string{
	"full_name", "age", "gender", "domicile", "japanese_level", "education",
	"last_position", "total_experience_months", "japan_experience_months",
	"skills", "verification_status",
}

// Columns returns the catalog for a mode. The returned slice is a copy.
func Columns(mode Mode) []ExportColumn {
	if mode == ModeBasic {
		out := make([]ExportColumn, 0, len(basicKeys))
		for _, k := range basicKeys {
			col, _ := lookupColumn(k)
			col.Default = true
			out = append(out, col)
		}
		return out
	}
	out := make([]ExportColumn, len(enhancedColumns))
	copy(out, enhancedColumns)
	return out
}

// DefaultKeys returns the default-selected keys for a mode, in catalog order.
func DefaultKeys(mode Mode) []string {
	var keys []string
	for _, c := range Columns(mode) {
		if c.Default {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// ValidateKeys checks that every key belongs to the mode's catalog.
func ValidateKeys(mode Mode, keys []string) error {
	allowed := make(map[string]bool)
	for _, c := range Columns(mode) {
		allowed[c.Key] = true
	}
	for _, k := range keys {
		if !allowed[k] {
			return &UnknownColumnError{Key: k}
		}
	}
	return nil
}

func lookupColumn(key string) (ExportColumn, bool) {
	for _, c := range enhancedColumns {
		if c.Key == key {
			return c, true
		}
	}
	return ExportColumn{}, false
}

// headerOverrides are the keys whose header is not derived from the key.
var headerOverrides = map[string]string{
	"unique_code": "Unique Code",
	"email":       "Email",
	"phone":       "Phone",
}

// HeaderFor returns the CSV header for a column key.
func HeaderFor(key string) string {
	if h, ok := headerOverrides[key]; ok {
		return h
	}
	return strings.ToUpper(strings.ReplaceAll(key, "_", " "))
}

// rowFields maps each column key to its scalar on an ExportRow.
var rowFields = map[string]func(r *ExportRow) string{
	"verification_id":         func(r *ExportRow) string { return strconv.FormatInt(r.VerificationID, 10) },
	"unique_code":             func(r *ExportRow) string { return r.UniqueCode },
	"full_name":               func(r *ExportRow) string { return r.FullName },
	"email":                   func(r *ExportRow) string { return r.Email },
	"phone":                   func(r *ExportRow) string { return r.Phone },
	"age":                     func(r *ExportRow) string { return formatInt(r.Age) },
	"gender":                  func(r *ExportRow) string { return r.Gender },
	"domicile":                func(r *ExportRow) string { return r.Domicile },
	"marital_status":          func(r *ExportRow) string { return r.MaritalStatus },
	"japanese_level":          func(r *ExportRow) string { return r.JapaneseLevel },
	"lpk_name":                func(r *ExportRow) string { return r.LPKName },
	"english_cert_type":       func(r *ExportRow) string { return r.EnglishCertType },
	"english_score":           func(r *ExportRow) string { return formatFloat(r.EnglishScore) },
	"education":               func(r *ExportRow) string { return r.Education },
	"major":                   func(r *ExportRow) string { return r.Major },
	"last_position":           func(r *ExportRow) string { return r.LastPosition },
	"expected_salary":         func(r *ExportRow) string { return formatInt64(r.ExpectedSalary) },
	"available_from":          func(r *ExportRow) string { return r.AvailableFrom },
	"verification_status":     func(r *ExportRow) string { return r.VerificationStatus },
	"verified_at":             func(r *ExportRow) string { return r.VerifiedAt },
	"total_experience_months": func(r *ExportRow) string { return formatInt(r.TotalExperienceMonths) },
	"japan_experience_months": func(r *ExportRow) string { return formatInt(r.JapanExperienceMonths) },
	"skills":                  func(r *ExportRow) string { return r.Skills },
	"golden_skill":            func(r *ExportRow) string { return r.GoldenSkill },
	"job_field_tags":          func(r *ExportRow) string { return r.JobFieldTags },
	"preferred_industries":    func(r *ExportRow) string { return r.PreferredIndustries },
	"interests":               func(r *ExportRow) string { return r.Interests },
	"company_preferences":     func(r *ExportRow) string { return r.CompanyPreferences },
}

// Value returns the string form of a column, "" for missing values.
// ok is false for a key outside the catalog.
func (r *ExportRow) Value(key string) (string, bool) {
	f, ok := rowFields[key]
	if !ok {
		return "", false
	}
	return f(r), true
}

// Values returns the row's scalars for keys, in order.
func (r *ExportRow) Values(keys []string) ([]string, error) {
	out := make([]string, len(keys))
	for i, k := range keys {
		v, ok := r.Value(k)
		if !ok {
			return nil, &UnknownColumnError{Key: k}
		}
		out[i] = v
	}
	return out, nil
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
