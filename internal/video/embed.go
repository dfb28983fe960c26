package video

import (
	"net/url"
	"path"
	"strings"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

type Kind string

const (
	KindYouTube Kind = "youtube"
	KindTwitch  Kind = "twitch"
	KindFile    Kind = "file"
	KindIframe  Kind = "iframe"
)

// Embed is a playable form of a match source link.
type Embed struct {
	Source string `json:"source"`
	Kind   Kind   `json:"kind"`
	URL    string `json:"url"`
}

var fileExtensions = []string{".mp4", ".webm", ".ogg", ".mov"}

// Resolve turns a link into an embeddable URL. Links that cannot be parsed
// as absolute http(s) URLs report false.
func Resolve(link string) (Embed, bool) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Embed{}, false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	switch host {
	case "youtube.com", "m.youtube.com":
		if strings.HasPrefix(u.Path, "/embed/") {
			return Embed{Kind: KindYouTube, URL: u.String()}, true
		}
		if id := u.Query().Get("v"); id != "" {
			return youtube(id), true
		}
	case "youtu.be":
		if id := strings.Trim(u.Path, "/"); id != "" {
			return youtube(id), true
		}
	case "twitch.tv":
		if channel := strings.Trim(u.Path, "/"); channel != "" && !strings.Contains(channel, "/") {
			return Embed{Kind: KindTwitch, URL: "https://player.twitch.tv/?channel=" + url.QueryEscape(channel)}, true
		}
	}

	ext := strings.ToLower(path.Ext(u.Path))
	for _, e := range fileExtensions {
		if ext == e {
			return Embed{Kind: KindFile, URL: u.String()}, true
		}
	}
	return Embed{Kind: KindIframe, URL: u.String()}, true
}

func youtube(id string) Embed {
	return Embed{Kind: KindYouTube, URL: "https://www.youtube.com/embed/" + url.PathEscape(id)}
}

// MatchEmbeds resolves the stream, VOD and replay links of a match, in that
// order, skipping empty or unusable ones.
func MatchEmbeds(m *bracket.Match) []Embed {
	out := []Embed{}
	if m == nil || m.Sources == nil {
		return out
	}
	for _, src := range []struct{ name, link string }{
		{"stream", m.Sources.StreamURL},
		{"vod", m.Sources.VODURL},
		{"replay", m.Sources.ReplayURL},
	} {
		if src.link == "" {
			continue
		}
		if e, ok := Resolve(src.link); ok {
			e.Source = src.name
			out = append(out, e)
		}
	}
	return out
}
