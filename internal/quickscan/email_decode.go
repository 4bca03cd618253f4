package quickscan

import (
	"encoding/base64"
	"encoding/json"
	"html"
	"regexp"
	"strings"
)

var (
	reVarPayload  = regexp.MustCompile(`\bvar\s+a\s*=\s*'([^']*)'`)
	reClassAttr   = regexp.MustCompile(`\bclass\s*=\s*"([^"]+)"`)
	reEmailStrict = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// decodeScriptEmail recovers an email address from an inline obfuscation
// script without executing any JavaScript. The candidate sits in a
// "var a='...'" assignment (possibly entity-encoded), and base64 JSON tokens
// in email-marked class attributes carry the de-obfuscation directives:
//
//	{"rot":"it"}       ROT13 the whole string
//	{"rmv":"<s>"}      remove the injected substring
//	{"h":"m"}          real 'h' was written as 'm'
//
// Order matters: unescape, removals, character substitutions, ROT13, then a
// strict validation. Anything that does not decode to a plausible address
// comes back as "".
func decodeScriptEmail(script string) string {
	m := reVarPayload.FindStringSubmatch(script)
	if len(m) != 2 {
		return ""
	}

	email := strings.TrimSpace(html.UnescapeString(m[1]))
	email = strings.TrimPrefix(email, "mailto:")

	d := scriptDirectives(script)

	for _, rm := range d.removals {
		if rm != "" {
			email = strings.ReplaceAll(email, rm, "")
		}
	}
	if len(d.subst) > 0 {
		email = substituteRunes(email, d.subst)
	}
	if d.rot13 {
		email = rot13(email)
	}

	// ROT13 can hide a "mailto:" (znvygb:) until after decoding.
	email = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(email), "mailto:"))

	if reEmailStrict.MatchString(email) {
		return email
	}
	return ""
}

type directives struct {
	rot13    bool
	removals []string
	subst    map[rune]rune // obfuscated -> real
}

// scriptDirectives collects directive tokens from class attributes. Only
// classes carrying an email marker ("email", "emailLink", "required") are
// considered, so ordinary base64-looking CSS classes elsewhere on the page
// cannot corrupt the decode.
func scriptDirectives(script string) directives {
	out := directives{subst: map[rune]rune{}}

	for _, ca := range reClassAttr.FindAllStringSubmatch(script, -1) {
		classVal := ca[1]
		if !strings.Contains(classVal, "email") && !strings.Contains(classVal, "required") {
			continue
		}

		for _, tok := range strings.Fields(classVal) {
			if len(tok) < 8 || len(tok) > 80 {
				continue
			}
			obj, ok := decodeBase64JSON(tok)
			if !ok {
				continue
			}

			if v, ok := obj["rot"]; ok && v == "it" {
				out.rot13 = true
			}
			if v, ok := obj["rmv"]; ok && v != "" {
				out.removals = append(out.removals, v)
			}
			for k, v := range obj {
				if k == "rot" || k == "rmv" {
					continue
				}
				kr, vr := []rune(k), []rune(v)
				if len(kr) == 1 && len(vr) == 1 {
					out.subst[vr[0]] = kr[0]
				}
			}
		}
	}
	return out
}

// decodeBase64JSON tries standard then URL-safe base64, padding as needed,
// and expects a non-empty JSON object of string pairs.
func decodeBase64JSON(token string) (map[string]string, bool) {
	padded := token
	for len(padded)%4 != 0 {
		padded += "="
	}
	b, err := base64.StdEncoding.DecodeString(padded)
	if err != nil {
		b, err = base64.URLEncoding.DecodeString(padded)
		if err != nil {
			return nil, false
		}
	}

	var obj map[string]string
	if err := json.Unmarshal(b, &obj); err != nil || len(obj) == 0 {
		return nil, false
	}
	return obj, true
}

func substituteRunes(s string, obfToReal map[rune]rune) string {
	rs := []rune(s)
	for i, r := range rs {
		if real, ok := obfToReal[r]; ok {
			rs[i] = real
		}
	}
	return string(rs)
}

func rot13(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune('a' + (r-'a'+13)%26)
		case r >= 'A' && r <= 'Z':
			b.WriteRune('A' + (r-'A'+13)%26)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
