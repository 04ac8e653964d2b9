package captions

import "net/url"

var legacyFormats = []string{"json3", "vtt"}

// legacyLanguages orders candidate languages: hint, picked track, every known
// track, then fallbacks. Duplicates are dropped.
func legacyLanguages(hint *TrackHint, picked *CaptionTrack, tracks []CaptionTrack, fallback []string) []string {
	seen := make(map[string]bool)
	var langs []string
	add := func(l string) {
		if l == "" || seen[l] {
			return
		}
		seen[l] = true
		langs = append(langs, l)
	}
	if hint != nil {
		add(hint.LanguageCode)
	}
	if picked != nil {
		add(picked.LanguageCode)
	}
	for _, t := range tracks {
		add(t.LanguageCode)
	}
	for _, l := range fallback {
		add(l)
	}
	return langs
}

// legacyURLs builds the ordered timedtext URL list: language, then manual
// before ASR, then format.
func legacyURLs(base, videoID string, langs []string) []string {
	urls := make([]string, 0, len(langs)*2*len(legacyFormats))
	for _, lang := range langs {
		for _, kind := range []string{KindStandard, KindASR} {
			for _, f := range legacyFormats {
				q := url.Values{}
				q.Set("v", videoID)
				q.Set("lang", lang)
				if kind != KindStandard {
					q.Set("kind", kind)
				}
				q.Set("fmt", f)
				urls = append(urls, base+"?"+q.Encode())
			}
		}
	}
	return urls
}
