package config

import "net/http"

// ToCookie stamps the template onto a cookie carrying the given value. An
// unset SameSite leaves the http package default in place.
func (ct *CookieTemplate) ToCookie(value string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     ct.Name,
		Value:    value,
		MaxAge:   ct.MaxAge,
		Path:     ct.Path,
		Domain:   ct.Domain,
		Secure:   ct.Secure,
		HttpOnly: ct.HTTPOnly,
	}

	switch ct.SameSite {
	case CookieSameSiteNone:
		cookie.SameSite = http.SameSiteNoneMode
	case CookieSameSiteLax:
		cookie.SameSite = http.SameSiteLaxMode
	case CookieSameSiteStrict:
		cookie.SameSite = http.SameSiteStrictMode
	}

	return cookie
}
