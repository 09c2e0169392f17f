package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// tokenFromRequest looks for the access token in the JSON body field "token"
// and falls back to an "Authorization: Bearer" header. The body is restored
// so handlers can decode it again.
func tokenFromRequest(r *http.Request) string {
	if r.Body != nil && r.Body != http.NoBody {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(b))
		if err == nil && len(b) > 0 {
			var body struct {
				Token string `json:"token"`
			}
			if json.Unmarshal(b, &body) == nil && body.Token != "" {
				return body.Token
			}
		}
	}
	return bearerToken(r.Header.Values("Authorization"))
}

func bearerToken(values []string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			if t := strings.TrimSpace(v[7:]); t != "" {
				return t
			}
		}
	}
	return ""
}
