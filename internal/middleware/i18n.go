package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}
type countryContextKey struct{}

var (
	LocaleKey  = localeContextKey{}
	CountryKey = countryContextKey{}
)

// supportedLocales are the locales client-facing messages exist in.
var supportedLocales = []language.Tag{
	language.BritishEnglish,  // en-GB, default
	language.MustParse("cy"), // Welsh
}

var localeMatcher = language.NewMatcher(supportedLocales)

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// I18N detects the request locale (X-Locale header, then Accept-Language,
// then GeoIP country) and stores locale and country in the request context.
func I18N(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := ResolveCountry(r, lookup)
			locale := detectLocale(r, defaultLocale, country)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, strings.ToUpper(country))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleFromContext returns the detected locale, or "" when the middleware
// did not run.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return ""
}

// CountryFromContext returns the resolved ISO country code, or "" when GeoIP
// resolution was unavailable or the middleware did not run.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CountryKey).(string); ok {
		return v
	}
	return ""
}

func detectLocale(r *http.Request, fallback, country string) string {
	if v := r.Header.Get("X-Locale"); v != "" {
		if tag, err := language.Parse(v); err == nil {
			return matchLocale(tag)
		}
	}
	if tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil && len(tags) > 0 {
		_, idx, conf := localeMatcher.Match(tags...)
		if conf > language.No {
			return localeString(supportedLocales[idx])
		}
	}
	if strings.EqualFold(country, "GB") {
		return "en-GB"
	}
	if fallback != "" {
		return fallback
	}
	return "en-GB"
}

func matchLocale(tag language.Tag) string {
	_, idx, conf := localeMatcher.Match(tag)
	if conf == language.No {
		return "en-GB"
	}
	return localeString(supportedLocales[idx])
}

func localeString(tag language.Tag) string {
	return tag.String()
}

// ResolveCountry finds the client's country via GeoIP, preferring forwarded
// headers over the socket address.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	if lookup == nil {
		return ""
	}
	for _, ip := range candidateIPs(r) {
		if code, err := lookup(ip); err == nil && code != "" {
			return code
		}
	}
	return ""
}

func candidateIPs(r *http.Request) []string {
	var ips []string
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			if ip := strings.TrimSpace(part); net.ParseIP(ip) != nil {
				ips = append(ips, ip)
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && net.ParseIP(host) != nil {
		ips = append(ips, host)
	} else if net.ParseIP(r.RemoteAddr) != nil {
		ips = append(ips, r.RemoteAddr)
	}
	return ips
}
