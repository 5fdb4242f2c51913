// Package validate implements name validation: dictionary-backed checks,
// full-name parsing, organization detection, and gender prediction.
package validate

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Dictionary confidence levels: a name found in the dictionary scores high,
// an unknown but plausible name scores neutral.
const (
	confidenceInDictionary = 0.9
	confidenceNotInDict    = 0.5
	confidenceNoDictionary = 0.6
)

var titles = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "miss": true,
	"dr": true, "prof": true, "rev": true,
}

var suffixes = map[string]bool{
	"jr": true, "sr": true, "iii": true, "iv": true,
	"md": true, "phd": true, "cpa": true, "esq": true,
}

var orgIndicators = []string{
	"llc", "inc", "corp", "company", "ltd", "co.", "corporation",
	"hospital", "medical", "clinic", "center", "services", "solutions",
	"group", "partners", "associates", "firm", "office", "bank",
	"trust", "foundation", "institute", "university", "college",
}

var femaleEndings = []string{"a", "ia", "ana", "ella", "ina", "lyn", "lynn", "elle"}
var maleEndings = []string{"er", "on", "an", "en", "son"}

var commonFemale = map[string]bool{
	"mary": true, "jennifer": true, "patricia": true,
	"linda": true, "barbara": true, "susan": true,
}

var commonMale = map[string]bool{
	"james": true, "john": true, "robert": true,
	"michael": true, "william": true, "david": true,
}

// NameValidator validates person names, optionally against first/last name
// dictionaries loaded from disk.
type NameValidator struct {
	firstNames map[string]bool
	lastNames  map[string]bool
	loaded     bool
	logger     *slog.Logger
}

// NewNameValidator loads dictionaries from dir (first_names.txt and
// last_names.txt, one name per line). An empty or missing dir degrades to
// dictionary-less validation rather than failing.
func NewNameValidator(dir string, logger *slog.Logger) *NameValidator {
	if logger == nil {
		logger = slog.Default()
	}
	v := &NameValidator{
		firstNames: make(map[string]bool),
		lastNames:  make(map[string]bool),
		logger:     logger,
	}

	if dir != "" {
		v.firstNames = loadNameFile(filepath.Join(dir, "first_names.txt"), logger)
		v.lastNames = loadNameFile(filepath.Join(dir, "last_names.txt"), logger)
		v.loaded = len(v.firstNames) > 0 || len(v.lastNames) > 0
	}

	logger.Info("name validator initialized", "dictionary", v.loaded)
	return v
}

func loadNameFile(path string, logger *slog.Logger) map[string]bool {
	names := make(map[string]bool)

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("name dictionary not found", "path", path)
		return names
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if name != "" {
			names[name] = true
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("error reading name dictionary", "path", path, "error", err)
	}

	logger.Info("loaded name dictionary", "path", path, "count", len(names))
	return names
}

// DictionaryLoaded reports whether any dictionary was loaded.
func (v *NameValidator) DictionaryLoaded() bool {
	return v.loaded
}

// FieldAnalysis is the per-field dictionary outcome.
type FieldAnalysis struct {
	FoundInDictionary bool    `json:"found_in_dictionary"`
	Confidence        float64 `json:"confidence"`
}

// NameCheck is the outcome of validating a first/last pair.
type NameCheck struct {
	Valid      bool     `json:"valid"`
	Confidence float64  `json:"confidence"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	Normalized struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"normalized"`
	Analysis struct {
		FirstName FieldAnalysis `json:"first_name"`
		LastName  FieldAnalysis `json:"last_name"`
	} `json:"analysis"`
}

// Validate checks a first/last name pair. Both components are required;
// dictionary hits raise the confidence, misses lower it.
func (v *NameValidator) Validate(firstName, lastName string) NameCheck {
	var check NameCheck
	check.Errors = []string{}
	check.Warnings = []string{}

	first := strings.TrimSpace(firstName)
	last := strings.TrimSpace(lastName)

	check.Normalized.FirstName = titleCase(first)
	check.Normalized.LastName = titleCase(last)

	if first == "" {
		check.Errors = append(check.Errors, "First name required")
	}
	if last == "" {
		check.Errors = append(check.Errors, "Last name required")
	}

	firstConf, lastConf := confidenceNoDictionary, confidenceNoDictionary
	if v.loaded && first != "" {
		inDict := v.firstNames[strings.ToLower(first)]
		check.Analysis.FirstName = FieldAnalysis{FoundInDictionary: inDict, Confidence: dictConfidence(inDict)}
		firstConf = check.Analysis.FirstName.Confidence
	}
	if v.loaded && last != "" {
		inDict := v.lastNames[strings.ToLower(last)]
		check.Analysis.LastName = FieldAnalysis{FoundInDictionary: inDict, Confidence: dictConfidence(inDict)}
		lastConf = check.Analysis.LastName.Confidence
	}

	if first != "" && len(first) < 2 {
		check.Warnings = append(check.Warnings, "First name seems short")
	}
	if last != "" && len(last) < 2 {
		check.Warnings = append(check.Warnings, "Last name seems short")
	}

	check.Valid = len(check.Errors) == 0
	if check.Valid {
		check.Confidence = (firstConf + lastConf) / 2
	}

	return check
}

func dictConfidence(found bool) float64 {
	if found {
		return confidenceInDictionary
	}
	return confidenceNotInDict
}

// Parsed holds the components of a parsed full name.
type Parsed struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
}

// ParseFullName splits a full name into first/middle/last, stripping titles
// (Mr, Dr, ...) and suffixes (Jr, PhD, ...).
func (v *NameValidator) ParseFullName(fullName string) Parsed {
	var clean []string
	for _, part := range strings.Fields(fullName) {
		key := strings.TrimRight(strings.ToLower(part), ".")
		if titles[key] || suffixes[key] {
			continue
		}
		clean = append(clean, part)
	}

	switch len(clean) {
	case 0:
		return Parsed{}
	case 1:
		return Parsed{FirstName: clean[0]}
	case 2:
		return Parsed{FirstName: clean[0], LastName: clean[1]}
	default:
		return Parsed{
			FirstName:  clean[0],
			MiddleName: strings.Join(clean[1:len(clean)-1], " "),
			LastName:   clean[len(clean)-1],
		}
	}
}

// IsOrganization reports whether the name looks like a business or
// institution rather than a person.
func (v *NameValidator) IsOrganization(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, indicator := range orgIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// PredictGender guesses M or F from a first name, or returns "" when no
// heuristic applies. Ending patterns are checked before the common-name
// lists.
func (v *NameValidator) PredictGender(firstName string) string {
	name := strings.ToLower(strings.TrimSpace(firstName))
	if name == "" {
		return ""
	}

	for _, suffix := range femaleEndings {
		if strings.HasSuffix(name, suffix) {
			return "F"
		}
	}
	for _, suffix := range maleEndings {
		if strings.HasSuffix(name, suffix) {
			return "M"
		}
	}

	if commonFemale[name] {
		return "F"
	}
	if commonMale[name] {
		return "M"
	}
	return ""
}

// titleCase uppercases the first rune of each word, matching how names are
// conventionally written.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
