package config

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToCookie(t *testing.T) {
	tests := []struct {
		name     string
		template CookieTemplate
		value    string
		want     *http.Cookie
	}{
		{
			name:     "zero template",
			template: CookieTemplate{Name: "flow_id"},
			value:    "abc",
			want: &http.Cookie{
				Name:  "flow_id",
				Value: "abc",
			},
		}, {
			name: "flow cookie",
			template: CookieTemplate{
				Name:     "flow_id",
				MaxAge:   1800,
				Path:     "/",
				Secure:   true,
				HTTPOnly: true,
				SameSite: CookieSameSiteLax,
			},
			value: "abc",
			want: &http.Cookie{
				Name:     "flow_id",
				Value:    "abc",
				MaxAge:   1800,
				Path:     "/",
				Secure:   true,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			},
		}, {
			name: "strict cross-domain",
			template: CookieTemplate{
				Name:     "flow_id",
				Path:     "/",
				Domain:   "gateway.example",
				Secure:   true,
				SameSite: CookieSameSiteStrict,
			},
			value: "abc",
			want: &http.Cookie{
				Name:     "flow_id",
				Value:    "abc",
				Path:     "/",
				Domain:   "gateway.example",
				Secure:   true,
				SameSite: http.SameSiteStrictMode,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.template.ToCookie(tt.value)
			assert.Equal(t, tt.want.Name, c.Name)
			assert.Equal(t, tt.want.Value, c.Value)
			assert.Equal(t, tt.want.MaxAge, c.MaxAge)
			assert.Equal(t, tt.want.Path, c.Path)
			assert.Equal(t, tt.want.Domain, c.Domain)
			assert.Equal(t, tt.want.Secure, c.Secure)
			assert.Equal(t, tt.want.SameSite, c.SameSite)
			assert.Equal(t, tt.want.HttpOnly, c.HttpOnly)
		})
	}
}
