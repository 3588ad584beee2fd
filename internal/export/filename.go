package export

import (
	"strings"
	"time"
	"unicode"
)

const maxSearchFragment = 20

// Filename returns the artifact name without extension. A custom name wins;
// otherwise the name encodes the search term, whether filters narrowed the
// view, and a second-resolution timestamp so repeated exports do not
// collide.
func Filename(req Request, cfg Config) string {
	if cfg.CustomFileName != "" {
		return cfg.CustomFileName
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	var b strings.Builder
	b.WriteString("emendas_parlamentares")

	if term := strings.TrimSpace(req.SearchTerm); term != "" {
		b.WriteString("_busca_")
		b.WriteString(sanitizeFragment(term))
	}
	if req.Filters.Active(req.Summary) {
		b.WriteString("_filtradas")
	}

	b.WriteString(now.Format("_20060102_150405"))
	return b.String()
}

// sanitizeFragment keeps ASCII letters and digits, replaces everything else
// with underscores, and caps the length.
func sanitizeFragment(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r > unicode.MaxASCII || (!unicode.IsLetter(r) && !unicode.IsDigit(r)) {
			r = '_'
		}
		out = append(out, r)
		if len(out) == maxSearchFragment {
			break
		}
	}
	return string(out)
}
