// Package page loads a YouTube watch page and exposes what the caption
// pipeline needs from it: the track list, the default track, the InnerTube
// runtime configuration and the video title.
package page

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/anatolykoptev/go_captions/internal/bridge"
	"github.com/anatolykoptev/go_captions/internal/engine"
	"github.com/anatolykoptev/go_captions/internal/engine/captions"
)

// ErrNoPlayerResponse means the watch page carried no ytInitialPlayerResponse.
var ErrNoPlayerResponse = errors.New("ytInitialPlayerResponse not found in watch page")

var playerResponseMarkers = []string{"ytInitialPlayerResponse = ", "ytInitialPlayerResponse="}

var (
	apiKeyRe        = regexp.MustCompile(`"INNERTUBE_API_KEY"\s*:\s*"([^"]+)"`)
	clientVersionRe = regexp.MustCompile(`"INNERTUBE_CLIENT_VERSION"\s*:\s*"([^"]+)"`)
	visitorDataRe   = regexp.MustCompile(`"VISITOR_DATA"\s*:\s*"([^"]+)"`)
	badTitleRe      = regexp.MustCompile(`(?i)^(untitled|\(untitled\)|youtube)$`)
)

// Info is the parsed state of one watch page. It implements
// bridge.ConfigProvider and captions.PageState.
type Info struct {
	VideoID string
	Title   string
	Tracks  []captions.CaptionTrack
	Hint    *captions.TrackHint
	Config  bridge.PageConfig
}

// PageConfig implements bridge.ConfigProvider.
func (i *Info) PageConfig() bridge.PageConfig { return i.Config }

// CaptionTracks implements captions.PageState.
func (i *Info) CaptionTracks() []captions.CaptionTrack { return i.Tracks }

// SelectedTrack implements captions.PageState.
func (i *Info) SelectedTrack() *captions.TrackHint { return i.Hint }

// VideoInfo returns the {videoId, title} pair the extractor needs.
func (i *Info) VideoInfo() captions.VideoInfo {
	return captions.VideoInfo{VideoID: i.VideoID, Title: i.Title}
}

type playerResponse struct {
	ResponseContext struct {
		VisitorData string `json:"visitorData"`
	} `json:"responseContext"`
	VideoDetails struct {
		VideoID string `json:"videoId"`
		Title   string `json:"title"`
	} `json:"videoDetails"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captions.CaptionTrack `json:"captionTracks"`
			AudioTracks   []struct {
				DefaultCaptionTrackIndex *int `json:"defaultCaptionTrackIndex"`
			} `json:"audioTracks"`
			DefaultAudioTrackIndex int `json:"defaultAudioTrackIndex"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

// Load fetches and parses the watch page of videoID through doer.
func Load(ctx context.Context, doer engine.Doer, videoID string) (*Info, error) {
	return LoadURL(ctx, doer, WatchURL(videoID), videoID)
}

// LoadURL is Load against an explicit page URL.
func LoadURL(ctx context.Context, doer engine.Doer, pageURL, videoID string) (*Info, error) {
	engine.IncrPageLoads()
	body, err := engine.FetchPage(ctx, doer, pageURL)
	if err != nil {
		engine.IncrPageLoadErrors()
		return nil, fmt.Errorf("watch page: %w", err)
	}
	info, err := Parse(body, videoID)
	if err != nil {
		engine.IncrPageLoadErrors()
		return nil, err
	}
	return info, nil
}

// Parse extracts page state from watch page HTML. A page without a player
// response still yields the title and config, with ErrNoPlayerResponse
// logged rather than returned, since later stages do not need tracks.
func Parse(body []byte, videoID string) (*Info, error) {
	info := &Info{VideoID: videoID}
	info.Config = parseConfig(body)

	if pr, err := parsePlayerResponse(body); err != nil {
		slog.Debug("page: no player response", slog.String("video", videoID), slog.Any("error", err))
	} else {
		if info.Config.VisitorData == "" {
			info.Config.VisitorData = pr.ResponseContext.VisitorData
		}
		if info.VideoID == "" {
			info.VideoID = pr.VideoDetails.VideoID
		}
		if pr.Captions != nil {
			r := pr.Captions.PlayerCaptionsTracklistRenderer
			info.Tracks = r.CaptionTracks
			for i := range info.Tracks {
				if info.Tracks[i].TranslationTargetLanguage == "" {
					info.Tracks[i].TranslationTargetLanguage = captions.TranslationTarget(info.Tracks[i].BaseURL)
				}
			}
			info.Hint = defaultHint(r.CaptionTracks, r.DefaultAudioTrackIndex, func(i int) *int {
				if i < 0 || i >= len(r.AudioTracks) {
					return nil
				}
				return r.AudioTracks[i].DefaultCaptionTrackIndex
			})
		}
		info.Title = pr.VideoDetails.Title
	}

	if title := parseTitle(body); title != "" {
		info.Title = title
	}
	if info.VideoID == "" {
		return nil, captions.ErrNoVideo
	}
	return info, nil
}

func parsePlayerResponse(body []byte) (*playerResponse, error) {
	idx := -1
	var marker string
	for _, m := range playerResponseMarkers {
		if idx = bytes.Index(body, []byte(m)); idx >= 0 {
			marker = m
			break
		}
	}
	if idx < 0 {
		return nil, ErrNoPlayerResponse
	}
	raw := engine.ExtractJSONBlock(string(body[idx+len(marker):]))
	if raw == "" {
		return nil, errors.New("unbalanced ytInitialPlayerResponse JSON")
	}
	var pr playerResponse
	if err := json.Unmarshal([]byte(raw), &pr); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &pr, nil
}

func parseConfig(body []byte) bridge.PageConfig {
	find := func(re *regexp.Regexp) string {
		if m := re.FindSubmatch(body); len(m) >= 2 {
			return string(m[1])
		}
		return ""
	}
	return bridge.PageConfig{
		APIKey:        find(apiKeyRe),
		ClientVersion: find(clientVersionRe),
		VisitorData:   find(visitorDataRe),
	}
}

// defaultHint turns the player's default caption track into a hint.
func defaultHint(tracks []captions.CaptionTrack, audioIdx int, captionIdx func(int) *int) *captions.TrackHint {
	p := captionIdx(audioIdx)
	if p == nil {
		p = captionIdx(0)
	}
	if p == nil || *p < 0 || *p >= len(tracks) {
		return nil
	}
	t := tracks[*p]
	return &captions.TrackHint{LanguageCode: t.LanguageCode, VssID: t.VssID, Kind: t.Kind}
}

// parseTitle picks the first usable title: visible h1, then meta tags, then
// <title> without the " - YouTube" suffix.
func parseTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	text := func(sel string) string {
		return strings.TrimSpace(doc.Find(sel).First().Text())
	}
	meta := func(sel string) string {
		v, _ := doc.Find(sel).First().Attr("content")
		return strings.TrimSpace(v)
	}
	docTitle := strings.TrimSpace(strings.TrimSuffix(text("title"), " - YouTube"))

	for _, t := range []string{
		text("ytd-watch-metadata h1 yt-formatted-string"),
		text("h1.title, h1#title, h1"),
		meta(`meta[property="og:title"]`),
		meta(`meta[name="twitter:title"]`),
		meta(`meta[itemprop="name"]`),
		docTitle,
	} {
		if t != "" && !badTitleRe.MatchString(t) {
			return engine.CollapseSpace(t)
		}
	}
	return ""
}
