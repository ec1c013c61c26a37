package pipeline

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	mdLeadRe  = regexp.MustCompile("(^|\\s)[*_#>`~]{1,3}")
	mdTrailRe = regexp.MustCompile("[*_`~]{1,3}(\\s|$)")
	spaceRe   = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// cleanText decodes entities, then drops tags and markdown emphasis and
// collapses whitespace. Decoding first also removes tags that arrive
// entity-encoded, such as "&lt;p&gt;".
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	s = stripTags(html.UnescapeString(s))
	s = mdLeadRe.ReplaceAllString(s, " ")
	s = mdTrailRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripTags keeps only text tokens, separated by spaces so adjacent block
// elements do not glue words together. Script and style bodies are dropped.
// Text is kept raw: s is expected to be decoded already.
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; keep what was read.
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip = true
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip = false
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if !skip {
				b.Write(z.Raw())
			}
		}
	}
}

// firstCityRegion returns the first non-empty comma-separated segment.
func firstCityRegion(display string) string {
	for _, part := range strings.Split(display, ",") {
		if p := strings.TrimSpace(part); p != "" {
			return p
		}
	}
	return ""
}

// truncateAtWord cuts s to at most limit runes, backing off to the last
// space inside the limit when there is one.
func truncateAtWord(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	cut := string([]rune(s)[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldText lowercases s and strips combining marks.
func foldText(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// wordAt reports whether term occurs in text at byte offset i with word
// boundaries on each side whose edge rune is itself a word character.
// Terms like "c++" or ".net" therefore match before punctuation or spaces.
func wordAt(text, term string, i int) bool {
	first, _ := utf8.DecodeRuneInString(term)
	if isWordRune(first) && i > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:i])
		if isWordRune(prev) {
			return false
		}
	}
	last, _ := utf8.DecodeLastRuneInString(term)
	end := i + len(term)
	if isWordRune(last) && end < len(text) {
		next, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(next) {
			return false
		}
	}
	return true
}

// containsWord reports a whole-word occurrence of term in text.
func containsWord(text, term string) bool {
	if term == "" {
		return false
	}
	for off := 0; off < len(text); {
		j := strings.Index(text[off:], term)
		if j < 0 {
			return false
		}
		if wordAt(text, term, off+j) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[off+j:])
		off += j + size
	}
	return false
}

// replaceWord replaces every whole-word occurrence of from with to.
func replaceWord(text, from, to string) string {
	if from == "" || !strings.Contains(text, from) {
		return text
	}
	var b strings.Builder
	off := 0
	for off < len(text) {
		j := strings.Index(text[off:], from)
		if j < 0 {
			break
		}
		at := off + j
		if wordAt(text, from, at) {
			b.WriteString(text[off:at])
			b.WriteString(to)
			off = at + len(from)
			continue
		}
		_, size := utf8.DecodeRuneInString(text[at:])
		b.WriteString(text[off : at+size])
		off = at + size
	}
	b.WriteString(text[off:])
	return b.String()
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(text, m) {
			return true
		}
	}
	return false
}
