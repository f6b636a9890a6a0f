package query

// Canonical respondent vocabularies shared by filters, imports and ordering.
var (
	AgeGroups    = []string{"18-29", "30-49", "50+"}
	Industries   = []string{"Technology", "Finance", "Healthcare", "Manufacturing", "Retail", "Education", "Government", "Professional Services", "Media", "Hospitality"}
	JobRoles     = []string{"Individual Contributor", "Manager", "Executive", "Other"}
	CompanySizes = []string{"1-50", "51-200", "201-1000", "1000+"}
)

// CompanySizeAliases maps legacy size labels onto the canonical buckets.
var CompanySizeAliases = map[string]string{
	"micro":  "1-50",
	"small":  "51-200",
	"medium": "201-1000",
	"large":  "1000+",
}

// Respondents is the filter vocabulary accepted by every analytics endpoint.
var Respondents = NewSpec(
	Field{Param: "ageGroup", Column: "age_group", Kind: Match, Options: plain(AgeGroups)},
	Field{Param: "industry", Column: "industry_sector", Kind: Match, Options: plain(Industries)},
	Field{Param: "jobRole", Column: "job_role", Kind: Match, Options: []Option{
		{Value: "Individual Contributor", Aliases: []string{"ic"}},
		{Value: "Manager"},
		{Value: "Executive", Aliases: []string{"exec"}},
		{Value: "Other"},
	}},
	Field{Param: "companySize", Column: "company_size", Kind: Match, Options: []Option{
		{Value: "1-50", Aliases: []string{"micro"}},
		{Value: "51-200", Aliases: []string{"small"}},
		{Value: "201-1000", Aliases: []string{"medium"}},
		{Value: "1000+", Aliases: []string{"large"}},
	}},
	Field{Param: "aiUser", Column: "is_ai_user", Kind: Flag, Options: yesNo()},
	Field{Param: "trained", Column: "ai_training_received", Kind: Flag, Options: yesNo()},
	Field{Param: "sentiment", Kind: AnyOf, Options: []Option{
		{Value: "Worried", Column: "is_worried"},
		{Value: "Hopeful", Column: "is_hopeful"},
		{Value: "Overwhelmed", Column: "is_overwhelmed"},
		{Value: "Excited", Column: "is_excited"},
	}},
)

func plain(values []string) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{Value: v}
	}
	return out
}

func yesNo() []Option {
	return []Option{
		{Value: "yes", Aliases: []string{"true"}, Arg: true},
		{Value: "no", Aliases: []string{"false"}, Arg: false},
	}
}
