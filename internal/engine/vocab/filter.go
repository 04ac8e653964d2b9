package vocab

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anatolykoptev/go_captions/internal/engine"
)

// substringScripts match terms by plain substring instead of word boundaries.
var substringScripts = map[string]bool{"ja": true, "ko": true, "zh": true}

// caseFolded languages compare terms case-insensitively.
var caseFolded = map[string]bool{"en": true, "fr": true, "de": true, "es": true, "ru": true}

var stoplists = map[string][]string{
	"en": {"uh", "um", "er", "ah", "oh", "like", "you know", "i mean", "kind of", "sort of", "okay", "ok", "so", "well"},
	"ja": {"えっと", "ええと", "あの", "その", "まぁ", "まあ", "うん", "あぁ", "はい"},
	"ko": {"어", "음", "그냥", "막", "뭐지", "저기", "그러니까", "근데", "아니", "자", "응"},
	"ru": {"ну", "типа", "как бы", "ээ", "эм", "блин", "ладно", "короче"},
	"fr": {"euh", "bah", "ben", "du coup", "genre", "en fait", "bref", "voilà"},
	"de": {"äh", "ähm", "halt", "eben", "so", "naja", "also", "ja", "nee", "doch"},
	"es": {"eh", "este", "pues", "bueno", "o sea", "vale", "ya", "entonces"},
	"zh": {"嗯", "啊", "这个", "那個", "那个", "這個", "就是", "然后", "然後", "吧", "呃", "嘛"},
}

var scriptTables = map[string][]*unicode.RangeTable{
	"ja": {unicode.Hiragana, unicode.Katakana, unicode.Han},
	"ko": {unicode.Hangul},
	"zh": {unicode.Han},
	"ru": {unicode.Cyrillic},
}

var latinTokenRe = regexp.MustCompile(`[\p{L}\p{M}][\p{L}\p{M}'-]*`)

var scriptTokenRe = map[string]*regexp.Regexp{
	"ja": regexp.MustCompile(`[\p{Hiragana}\p{Katakana}\p{Han}]+`),
	"ko": regexp.MustCompile(`\p{Hangul}+`),
	"zh": regexp.MustCompile(`\p{Han}+`),
	"ru": regexp.MustCompile(`\p{Cyrillic}+`),
}

// filterCandidates keeps items that occur in the transcript, are not filler
// and match the source script, sorted by frequency and capped at maxItems.
// Constraints are loosened step by step rather than returning nothing.
func filterCandidates(items []Candidate, text, lang string, maxItems int) []Candidate {
	if strings.TrimSpace(text) == "" {
		return items
	}
	base := engine.BaseLang(lang)
	full := strings.Join(strings.Fields(text), " ")
	if len(items) == 0 {
		return naiveCandidates(full, base, maxItems)
	}
	stop := stopSet(base)

	keep := func(contains func(string) bool) []Candidate {
		var out []Candidate
		seen := make(map[string]bool)
		for _, it := range items {
			term := strings.TrimSpace(it.Term)
			key := foldKey(term, base)
			if seen[key] || !contains(term) || isStop(term, stop) || !scriptOK(term, base) {
				continue
			}
			seen[key] = true
			it.Term = term
			out = append(out, it)
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Freq > out[j].Freq })
		return capItems(out, maxItems)
	}

	if out := keep(func(t string) bool { return containsTerm(full, t, base) }); len(out) > 0 {
		return out
	}
	lower := strings.ToLower(full)
	if out := keep(func(t string) bool { return t != "" && strings.Contains(lower, strings.ToLower(t)) }); len(out) > 0 {
		return out
	}

	var basic []Candidate
	for _, it := range items {
		if hasLetter(it.Term) {
			basic = append(basic, it)
		}
	}
	return capItems(basic, clamp(maxItems, 10, 40))
}

// containsTerm matches whole words for alphabetic scripts, substrings for CJK.
func containsTerm(full, term, base string) bool {
	if term == "" {
		return false
	}
	if substringScripts[base] {
		return strings.Contains(full, term)
	}
	re, err := regexp.Compile(`(?i)(^|[^\p{L}\p{M}\p{N}'-])` + regexp.QuoteMeta(term) + `([^\p{L}\p{M}\p{N}'-]|$)`)
	if err != nil {
		return strings.Contains(strings.ToLower(full), strings.ToLower(term))
	}
	return re.MatchString(full)
}

func stopSet(base string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range stoplists[base] {
		set[strings.ToLower(w)] = true
	}
	return set
}

// isStop drops fillers and terms that are mostly digits or punctuation.
func isStop(term string, stop map[string]bool) bool {
	if term == "" {
		return true
	}
	var alnum, digits int
	for _, r := range term {
		if unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r) {
			alnum++
		}
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if alnum == 0 || float64(digits)/float64(utf8.RuneCountInString(term)) > 0.5 {
		return true
	}
	return stop[strings.ToLower(term)]
}

func scriptOK(term, base string) bool {
	tables, ok := scriptTables[base]
	if !ok {
		return term != ""
	}
	for _, r := range term {
		if unicode.IsOneOf(tables, r) {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsMark(r) {
			return true
		}
	}
	return false
}

func foldKey(term, base string) string {
	if caseFolded[base] {
		return strings.ToLower(term)
	}
	return term
}

// naiveCandidates builds frequency-ranked tokens straight from the transcript.
func naiveCandidates(full, base string, maxItems int) []Candidate {
	re, ok := scriptTokenRe[base]
	if !ok {
		re = latinTokenRe
	}
	minLen, maxLen := 3, 0
	switch base {
	case "ja", "zh":
		minLen, maxLen = 2, 8
	case "ko":
		minLen, maxLen = 2, 10
	}

	counts := make(map[string]int)
	var order []string
	for _, tok := range re.FindAllString(full, -1) {
		n := utf8.RuneCountInString(tok)
		if n < minLen || (maxLen > 0 && n > maxLen) {
			continue
		}
		key := foldKey(tok, base)
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}

	items := make([]Candidate, 0, len(order))
	for _, k := range order {
		items = append(items, Candidate{Term: k, Type: "word", Freq: counts[k]})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Freq > items[j].Freq })
	return capItems(items, clamp(maxItems, 10, 80))
}

// alignCards returns exactly one card per selected term, in selection order.
func alignCards(cards []Card, selected []Candidate, lang string) []Card {
	base := engine.BaseLang(lang)
	byTerm := make(map[string]Card, len(cards))
	for _, c := range cards {
		k := foldKey(strings.TrimSpace(c.Term), base)
		if _, dup := byTerm[k]; k != "" && !dup {
			byTerm[k] = c
		}
	}
	out := make([]Card, 0, len(selected))
	for _, s := range selected {
		term := strings.TrimSpace(s.Term)
		if c, ok := byTerm[foldKey(term, base)]; ok {
			out = append(out, c)
			continue
		}
		out = append(out, Card{Term: term, Examples: []string{}, Notes: "insufficient_context"})
	}
	return out
}

// BuildEvidence collects up to perTerm transcript lines containing each term.
func BuildEvidence(text string, selected []Candidate, lang string, perTerm int) []Evidence {
	base := engine.BaseLang(lang)
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	out := make([]Evidence, 0, len(selected))
	for _, s := range selected {
		ev := Evidence{Term: s.Term, Lines: []string{}}
		for _, l := range lines {
			if len(ev.Lines) >= perTerm {
				break
			}
			if containsTerm(l, s.Term, base) {
				ev.Lines = append(ev.Lines, engine.TruncateRunes(l, 200, "…"))
			}
		}
		out = append(out, ev)
	}
	return out
}

func capItems(items []Candidate, n int) []Candidate {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func clamp(v, lo, hi int) int {
	if v <= 0 {
		v = DefaultMaxItems
	}
	return max(lo, min(hi, v))
}
