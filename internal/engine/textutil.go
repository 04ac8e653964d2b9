package engine

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go-kit/strutil"
)

// UserAgentChrome is the default desktop Chrome User-Agent.
const UserAgentChrome = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// StripTags removes anything that looks like an HTML/VTT tag.
func StripTags(s string) string {
	return htmlTagRe.ReplaceAllString(s, "")
}

// CleanHTML strips HTML tags and trims whitespace.
func CleanHTML(s string) string {
	return strings.TrimSpace(StripTags(s))
}

// CollapseSpace replaces every whitespace run with a single space and trims the ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// entityRe matches the named entities we decode plus decimal and hex references.
// A single left-to-right pass means "&amp;lt;" yields "&lt;", never "<".
var entityRe = regexp.MustCompile(`&(lt|gt|quot|amp|#[0-9]+|#[xX][0-9a-fA-F]+);`)

var namedEntities = map[string]string{
	"lt":   "<",
	"gt":   ">",
	"quot": `"`,
	"amp":  "&",
}

// DecodeEntities decodes &lt; &gt; &quot; &#39; &amp; and numeric character
// references. Invalid code points are left untouched.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityRe.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := namedEntities[name]; ok {
			return v
		}
		var n int64
		var err error
		if name[1] == 'x' || name[1] == 'X' {
			n, err = strconv.ParseInt(name[2:], 16, 32)
		} else {
			n, err = strconv.ParseInt(name[1:], 10, 32)
		}
		if err != nil || n <= 0 || n > utf8.MaxRune {
			return m
		}
		r := rune(n)
		if !utf8.ValidRune(r) {
			return m
		}
		return string(r)
	})
}

// Truncate returns the first n bytes of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8 (Cyrillic, CJK, emoji).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}
