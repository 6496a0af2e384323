// Package job collects job postings and normalizes them into Job records.
package job

const (
	UnknownTitle   = "Unknown Position"
	UnknownCompany = "Unknown Company"
)

// Job is a normalized posting. Required fields are always set.
type Job struct {
	Text                 string   `json:"text"`
	URL                  string   `json:"url"`
	Title                string   `json:"title"`
	Company              string   `json:"company"`
	RequiredSkills       []string `json:"requiredSkills"`
	MustHaveRequirements []string `json:"mustHaveRequirements"`
	NiceToHave           []string `json:"niceToHave"`
	KeyResponsibilities  []string `json:"keyResponsibilities"`
	Technologies         []string `json:"technologies"`
	Keywords             []string `json:"keywords"`
	ExperienceYears      *float64 `json:"experienceYears,omitempty"`
}

// New returns a Job with every required field defaulted.
func New(url, text string) *Job {
	j := &Job{URL: url, Text: text}
	j.applyDefaults()
	return j
}

func (j *Job) applyDefaults() {
	if j.Title == "" {
		j.Title = UnknownTitle
	}
	if j.Company == "" {
		j.Company = UnknownCompany
	}

	for _, list := range []*[]string{
		&j.RequiredSkills,
		&j.MustHaveRequirements,
		&j.NiceToHave,
		&j.KeyResponsibilities,
		&j.Technologies,
		&j.Keywords,
	} {
		*list = compact(*list)
	}
}

// compact drops blank entries and never returns nil.
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
