// redact маскирует секреты перед записью в лог.
package redact

import (
	"net/http"
	"strings"
)

const mask = "***"

// Token оставляет последние 4 символа токена, короткие токены скрывает целиком.
func Token(tok string) string {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return ""
	}

	if len(tok) <= 8 {
		return mask
	}

	return mask + tok[len(tok)-4:]
}

// sensitive — заголовки, значения которых в лог не попадают.
var sensitive = map[string]struct{}{
	"Authorization": {},
	"Cookie":        {},
	"Set-Cookie":    {},
}

// Header — копия заголовков с замаскированными чувствительными значениями.
func Header(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		ck := http.CanonicalHeaderKey(k)
		if _, ok := sensitive[ck]; ok {
			out[ck] = []string{mask}
			continue
		}
		out[ck] = append([]string(nil), vs...)
	}

	return out
}
