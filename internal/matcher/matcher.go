// Package matcher decides whether an uploaded filename identifies a product
// code. Preview and execution call the same functions, so the classification
// a user sees before committing a batch is exactly what the batch will do.
package matcher

import "strings"

// MatchRule identifies which rule accepted a (code, filename) pair. Rules are
// tried in declaration order and the first hit wins.
type MatchRule string

const (
	RuleExact      MatchRule = "exact"
	RuleNormalized MatchRule = "normalized"
	// RulePrefix accepts any basename starting with the code. A shorter code
	// can therefore claim a longer code's file (FL-001 vs FL-0010-XL.jpg);
	// this mirrors the upstream behavior and is kept deterministic by always
	// trying codes in list order.
	RulePrefix       MatchRule = "prefix"
	RuleWordBoundary MatchRule = "word_boundary"
	RuleNone         MatchRule = ""
)

const separators = "-_ \t"

// Matches reports whether candidateBasename identifies code. The basename
// must already be stripped of any directory and extension.
func Matches(code, candidateBasename string) bool {
	_, ok := Match(code, candidateBasename)
	return ok
}

// Match is Matches plus the rule that accepted the pair.
func Match(code, candidateBasename string) (MatchRule, bool) {
	codeFold := strings.ToLower(strings.TrimSpace(code))
	fileFold := strings.ToLower(strings.TrimSpace(candidateBasename))
	if codeFold == "" || fileFold == "" {
		return RuleNone, false
	}

	if fileFold == codeFold {
		return RuleExact, true
	}

	codeClean := stripSeparators(codeFold)
	fileClean := stripSeparators(fileFold)
	if codeClean != "" && fileClean == codeClean {
		return RuleNormalized, true
	}

	if strings.HasPrefix(fileClean, codeClean) && codeClean != "" {
		return RulePrefix, true
	}

	if containsDelimited(fileFold, codeFold) {
		return RuleWordBoundary, true
	}

	return RuleNone, false
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(separators, r) {
			return -1
		}
		return r
	}, s)
}

// containsDelimited reports whether needle occurs in haystack bounded on both
// sides by the string edge or a separator character.
func containsDelimited(haystack, needle string) bool {
	for from := 0; ; {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(needle)

		leftOK := start == 0 || isSeparator(haystack[start-1])
		rightOK := end == len(haystack) || isSeparator(haystack[end])
		if leftOK && rightOK {
			return true
		}

		from = start + 1
		if from >= len(haystack) {
			return false
		}
	}
}

func isSeparator(b byte) bool {
	return strings.IndexByte(separators, b) >= 0
}

// Candidate is a filename offered for assignment, keyed by its basename.
type Candidate struct {
	Filename string
	Basename string
}

// Assignment maps a candidate filename to the code that claimed it.
type Assignment struct {
	Filename string
	Code     string
	Rule     MatchRule
}

// Resolve assigns candidates to codes. Candidates are visited in input order;
// each is claimed by the first code in list order that matches it and does
// not already hold a file. Unclaimed candidates are ignored, not errors.
// The result is deterministic for a given (codes, candidates) pair.
func Resolve(codes []string, candidates []Candidate) []Assignment {
	assigned := make(map[string]bool, len(codes))
	out := make([]Assignment, 0, len(candidates))

	for _, candidate := range candidates {
		for _, code := range codes {
			rule, ok := Match(code, candidate.Basename)
			if !ok {
				continue
			}
			if assigned[code] {
				// First file in input order wins for a code; later matches
				// for the same code fall through to remaining codes.
				continue
			}
			assigned[code] = true
			out = append(out, Assignment{
				Filename: candidate.Filename,
				Code:     code,
				Rule:     rule,
			})
			break
		}
	}

	return out
}
