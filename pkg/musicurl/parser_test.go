package musicurl

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want *ParsedURL
	}{
		{
			name: "apple music direct song link",
			url:  "https://music.apple.com/us/song/bohemian-rhapsody/1440806041",
			want: &ParsedURL{Service: ServiceAppleMusic, ID: "1440806041"},
		},
		{
			name: "apple music geo hostname",
			url:  "https://geo.music.apple.com/us/song/bohemian-rhapsody/1440806041",
			want: &ParsedURL{Service: ServiceAppleMusic, ID: "1440806041"},
		},
		{
			name: "apple music album link with song query param",
			url:  "https://music.apple.com/us/album/a-night-at-the-opera/1440806023?i=1440806041",
			want: &ParsedURL{Service: ServiceAppleMusic, ID: "1440806041"},
		},
		{
			name: "query param wins over path digits",
			url:  "https://music.apple.com/us/album/some-album/999999?i=123456",
			want: &ParsedURL{Service: ServiceAppleMusic, ID: "123456"},
		},
		{
			name: "apple music album link without song param falls back to album id",
			url:  "https://music.apple.com/us/album/a-night-at-the-opera/1440806023",
			want: &ParsedURL{Service: ServiceAppleMusic, ID: "1440806023"},
		},
		{
			name: "apple music hostname with unrecognized path",
			url:  "https://music.apple.com/us/artist/queen/3296287",
			want: nil,
		},
		{
			name: "spotify track",
			url:  "https://open.spotify.com/track/4u7EnebtmKWzUH433cf5Qv",
			want: &ParsedURL{Service: ServiceSpotify, ID: "4u7EnebtmKWzUH433cf5Qv"},
		},
		{
			name: "spotify track with internationalization prefix",
			url:  "https://open.spotify.com/intl-de/track/4u7EnebtmKWzUH433cf5Qv",
			want: &ParsedURL{Service: ServiceSpotify, ID: "4u7EnebtmKWzUH433cf5Qv"},
		},
		{
			name: "spotify track with tracking query",
			url:  "https://open.spotify.com/track/4u7EnebtmKWzUH433cf5Qv?si=abc123",
			want: &ParsedURL{Service: ServiceSpotify, ID: "4u7EnebtmKWzUH433cf5Qv"},
		},
		{
			name: "spotify hostname with non-track path",
			url:  "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			want: nil,
		},
		{
			name: "unknown hostname with track-shaped path",
			url:  "https://example.com/track/abc123",
			want: nil,
		},
		{
			name: "not a url at all",
			url:  "just some words",
			want: nil,
		},
		{
			name: "unparseable input",
			url:  "http://[::1]:namedport",
			want: nil,
		},
		{
			name: "empty string",
			url:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.url)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("Parse(%q) = %+v, want nil", tt.url, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Parse(%q) = nil, want %+v", tt.url, tt.want)
			}
			if *got != *tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "spotify link amid other words",
			text: "listen to this https://open.spotify.com/track/4u7EnebtmKWzUH433cf5Qv so good",
			want: "https://open.spotify.com/track/4u7EnebtmKWzUH433cf5Qv",
		},
		{
			name: "apple music link with trailing punctuation",
			text: "here: https://music.apple.com/us/song/track/123456!",
			want: "https://music.apple.com/us/song/track/123456",
		},
		{
			name: "first recognizable link wins",
			text: "https://example.com/track/zzz then https://open.spotify.com/track/abc123 and https://music.apple.com/us/song/x/1",
			want: "https://open.spotify.com/track/abc123",
		},
		{
			name: "url present but not a music link",
			text: "check https://example.com/article out",
			want: "",
		},
		{
			name: "no url at all",
			text: "what a great song that was",
			want: "",
		},
		{
			name: "empty text",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFromText(tt.text); got != tt.want {
				t.Errorf("ExtractFromText(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
