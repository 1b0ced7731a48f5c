package logx

import (
	"log/slog"
	"strings"
	"unicode"
)

// SecureOptions controls how SecureString masks a value.
type SecureOptions struct {
	Rune   rune // mask rune
	Count  uint // mask length
	Prefix uint // visible leading bytes
	Suffix uint // visible trailing bytes
}

// SecureOption customizes SecureOptions.
type SecureOption func(*SecureOptions)

// SecureRune sets the mask rune. Non-printable runes are ignored.
func SecureRune(c rune) SecureOption {
	return func(o *SecureOptions) {
		if unicode.IsPrint(c) {
			o.Rune = c
		}
	}
}

// SecurePrefix shows the first n bytes.
func SecurePrefix(n uint) SecureOption {
	return func(o *SecureOptions) { o.Prefix = n }
}

// SecureSuffix shows the last n bytes.
func SecureSuffix(n uint) SecureOption {
	return func(o *SecureOptions) { o.Suffix = n }
}

// SecureString masks raw. The visible prefix and suffix are dropped when raw is too
// short to keep them without revealing most of the value.
func SecureString(raw string, opts ...SecureOption) string {
	o := SecureOptions{Rune: '#', Count: 8, Prefix: 6, Suffix: 4}
	for _, opt := range opts {
		opt(&o)
	}
	mask := strings.Repeat(string(o.Rune), int(o.Count))

	visible := int(o.Prefix + o.Suffix)
	if raw == "" {
		return ""
	}
	if len(raw) < 2*visible {
		if len(raw) > 2*int(o.Suffix) {
			return mask + raw[len(raw)-int(o.Suffix):]
		}
		return mask
	}
	return raw[:o.Prefix] + mask + raw[len(raw)-int(o.Suffix):]
}

// Secret returns an attribute whose value is masked with SecureString.
func Secret(key, value string) slog.Attr {
	return slog.String(key, SecureString(value))
}

// Bearer masks the credential of an Authorization header value.
func Bearer(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return SecureString(header)
	}
	return prefix + SecureString(header[len(prefix):])
}

// maskValue is a slog-formatter callback for sensitive keys.
func maskValue(v slog.Value) slog.Value {
	return slog.StringValue(SecureString(v.String()))
}
