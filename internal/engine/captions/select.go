package captions

import "net/url"

// TranslationTarget returns the tlang parameter of a track URL, or "".
func TranslationTarget(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("tlang")
}

// SelectTrack picks the track to extract. It resists following a translated
// view back to its translation and returns nil only for an empty list.
// The returned pointer refers into tracks.
func SelectTrack(tracks []CaptionTrack, hint *TrackHint) *CaptionTrack {
	if len(tracks) == 0 {
		return nil
	}

	pool := make([]int, 0, len(tracks))
	for i := range tracks {
		if !tracks[i].IsTranslation() {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		for i := range tracks {
			pool = append(pool, i)
		}
	}

	if hint != nil {
		if !hint.IsTranslation() && hint.VssID != "" {
			for _, i := range pool {
				if tracks[i].VssID == hint.VssID {
					return &tracks[i]
				}
			}
		}
		if hint.LanguageCode != "" {
			if i, ok := byLanguage(tracks, pool, hint.LanguageCode); ok {
				return &tracks[i]
			}
		}
	}

	for _, i := range pool {
		if !tracks[i].IsASR() {
			return &tracks[i]
		}
	}
	return &tracks[pool[0]]
}

// byLanguage prefers a non-ASR track in lang, then any track in lang.
func byLanguage(tracks []CaptionTrack, pool []int, lang string) (int, bool) {
	for _, i := range pool {
		if tracks[i].LanguageCode == lang && !tracks[i].IsASR() {
			return i, true
		}
	}
	for _, i := range pool {
		if tracks[i].LanguageCode == lang {
			return i, true
		}
	}
	return 0, false
}
