package search

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/linkedin-connect/internal/config"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.SearchConfig
		want    url.Values
		wantErr bool
	}{
		{
			name: "keywords and geo",
			cfg:  config.SearchConfig{Keywords: []string{"golang", "recruiter"}, GeoURN: `["106057199"]`},
			want: url.Values{"keywords": {"golang recruiter"}, "geoUrn": {`["106057199"]`}, "origin": {"FACETED_SEARCH"}},
		},
		{
			name: "keywords only",
			cfg:  config.SearchConfig{Keywords: []string{"sre"}},
			want: url.Values{"keywords": {"sre"}, "origin": {"FACETED_SEARCH"}},
		},
		{
			name:    "nothing configured",
			cfg:     config.SearchConfig{},
			wantErr: true,
		},
		{
			name:    "relative url",
			cfg:     config.SearchConfig{URL: "/search/results/people"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildURL(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			u, err := url.Parse(got)
			require.NoError(t, err)
			assert.Equal(t, "www.linkedin.com", u.Host)
			assert.Equal(t, "/search/results/people/", u.Path)
			assert.Equal(t, tt.want, u.Query())
		})
	}
}

func TestBuildURL_ExplicitURLWins(t *testing.T) {
	raw := "https://www.linkedin.com/search/results/people/?keywords=go&network=%5B%22S%22%5D"
	got, err := BuildURL(config.SearchConfig{URL: raw, Keywords: []string{"ignored"}})
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}
