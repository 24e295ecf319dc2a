// Package rules holds the tunable business-rule tables of the pipeline:
// the institution alias table, the leading-company detection lists and the
// classifier markers. Defaults are compiled in; a YAML file can override any
// table for a given reporting run.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Rules struct {
	// SimilarityThreshold gates greedy institution clustering.
	SimilarityThreshold float64 `yaml:"similarityThreshold"`

	// AliasGroups are literal name variants known to be the same entity.
	// The first member of each group is its canonical label. Alias
	// membership wins over fuzzy clustering.
	AliasGroups [][]string `yaml:"aliasGroups"`

	// SpecialInstitutions are institutions whose courses are always
	// leading-company courses, with the institution itself as partner.
	SpecialInstitutions []string `yaml:"specialInstitutions"`

	// LeadingCompanyKeywords mark a course name as leading-company when no
	// explicit partner is recorded.
	LeadingCompanyKeywords []string `yaml:"leadingCompanyKeywords"`

	// PartnerShare is the revenue fraction moved to the partner row.
	PartnerShare float64 `yaml:"partnerShare"`

	// BaseCompletionRate is the completion rate nominal revenue was priced
	// against.
	BaseCompletionRate float64 `yaml:"baseCompletionRate"`

	IncumbentPrefixes   []string `yaml:"incumbentPrefixes"`
	UniversityMarkers   []string `yaml:"universityMarkers"`
	AdvancedPrefixes    []string `yaml:"advancedPrefixes"`
	ConvergencePrefixes []string `yaml:"convergencePrefixes"`
}

func Default() Rules {
	return Rules{
		SimilarityThreshold: 0.65,
		AliasGroups: [][]string{
			{"대한상공회의소", "대한상의", "상공회의소 인력개발원", "대한상공회의소 인력개발원"},
			{"한국폴리텍대학", "폴리텍대학", "한국폴리텍", "폴리텍"},
		},
		SpecialInstitutions: []string{
			"삼성전자", "포스코", "KT", "네이버클라우드", "LG전자",
		},
		LeadingCompanyKeywords: []string{
			"선도기업", "파트너십", "컨소시엄", "협약기업",
		},
		PartnerShare:       0.9,
		BaseCompletionRate: 0.8,

		IncumbentPrefixes:   []string{"재직자_", "재직자 "},
		UniversityMarkers:   []string{"대학", "학교"},
		AdvancedPrefixes:    []string{"심화_", "심화 "},
		ConvergencePrefixes: []string{"융합_", "융합 "},
	}
}

// Load reads a YAML override file on top of the defaults. An empty path or a
// missing file yields the defaults; a malformed file is a hard error.
func Load(path string) (Rules, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return Rules{}, fmt.Errorf("read rules file %s: %w", path, err)
	}

	var override Rules
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Rules{}, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	if override.SimilarityThreshold > 0 {
		base.SimilarityThreshold = override.SimilarityThreshold
	}
	if override.PartnerShare > 0 {
		base.PartnerShare = override.PartnerShare
	}
	if override.BaseCompletionRate > 0 {
		base.BaseCompletionRate = override.BaseCompletionRate
	}
	if len(override.AliasGroups) > 0 {
		base.AliasGroups = override.AliasGroups
	}
	if len(override.SpecialInstitutions) > 0 {
		base.SpecialInstitutions = override.SpecialInstitutions
	}
	if len(override.LeadingCompanyKeywords) > 0 {
		base.LeadingCompanyKeywords = override.LeadingCompanyKeywords
	}
	if len(override.IncumbentPrefixes) > 0 {
		base.IncumbentPrefixes = override.IncumbentPrefixes
	}
	if len(override.UniversityMarkers) > 0 {
		base.UniversityMarkers = override.UniversityMarkers
	}
	if len(override.AdvancedPrefixes) > 0 {
		base.AdvancedPrefixes = override.AdvancedPrefixes
	}
	if len(override.ConvergencePrefixes) > 0 {
		base.ConvergencePrefixes = override.ConvergencePrefixes
	}
	return base, nil
}
