package auth

// HeaderAuthToken carries the raw compact token, without any scheme prefix.
const HeaderAuthToken = "X-AUTH-TOKEN"

// Headers exposes request header lookup.
type Headers interface {
	Get(key string) string
}

// HeaderMap is a case-sensitive Headers backed by a plain map.
type HeaderMap map[string]string

// Get returns the value stored under key, or "".
func (h HeaderMap) Get(key string) string {
	return h[key]
}

// ExtractBearerToken returns the X-AUTH-TOKEN value. A missing or empty header
// reports false; anonymous requests are expected.
func ExtractBearerToken(headers Headers) (string, bool) {
	if headers == nil {
		return "", false
	}
	token := headers.Get(HeaderAuthToken)
	if token == "" {
		return "", false
	}
	return token, true
}
