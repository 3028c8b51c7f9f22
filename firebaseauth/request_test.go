package firebaseauth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRequest(t *testing.T) {
	t.Parallel()
	t.Run("callback-leg", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		r := httptest.NewRequest("GET", "/auth/firebase/callback?token=tok-123&state=st_abc", nil)
		got := ParseRequest(r)
		assert.Equal(IDToken("tok-123"), got.Token)
		assert.Equal("st_abc", got.State)
		assert.Empty(got.Error)
		assert.Same(r, got.HTTP)
	})
	t.Run("error-leg", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		r := httptest.NewRequest("GET", "/auth/firebase/callback?error=access_denied&error_description=user+declined&error_uri=https%3A%2F%2Fexample.com%2Fhelp", nil)
		got := ParseRequest(r)
		assert.Equal("access_denied", got.Error)
		assert.Equal("user declined", got.ErrorDescription)
		assert.Equal("https://example.com/help", got.ErrorURI)
		assert.Empty(got.Token)
	})
	t.Run("nil-request", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		got := ParseRequest(nil)
		assert.NotNil(got)
		assert.Empty(got.Token)
	})
}

func Test_originalURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		host       string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{
			name: "direct",
			host: "www.example.net",
			want: "http://www.example.net",
		},
		{
			name:       "proxy-not-trusted",
			host:       "internal:8080",
			headers:    map[string]string{"X-Forwarded-Proto": "https", "X-Forwarded-Host": "www.example.net"},
			trustProxy: false,
			want:       "http://internal:8080",
		},
		{
			name:       "proxy-trusted",
			host:       "internal:8080",
			headers:    map[string]string{"X-Forwarded-Proto": "https", "X-Forwarded-Host": "www.example.net"},
			trustProxy: true,
			want:       "https://www.example.net",
		},
		{
			name:       "proxy-trusted-list-values",
			host:       "internal:8080",
			headers:    map[string]string{"X-Forwarded-Proto": "https, http", "X-Forwarded-Host": "www.example.net, internal"},
			trustProxy: true,
			want:       "https://www.example.net",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)
			r := httptest.NewRequest("GET", "/auth/firebase", nil)
			r.Host = tt.host
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			got := originalURL(r, tt.trustProxy)
			assert.Equal(tt.want, got.String())
		})
	}
}
