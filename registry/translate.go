package registry

import (
	"sort"
	"strconv"
	"strings"

	"github.com/AkaraChen/fama/config"
)

// Native is a backend-native configuration: only the options the capability
// entry lists as supported are present. Backends read the keys they care
// about and never see options configured for another backend.
type Native map[Option]string

// Has reports whether the option survived translation.
func (n Native) Has(opt Option) bool {
	_, ok := n[opt]

	return ok
}

// String returns the option's translated value, or def when it was dropped.
func (n Native) String(opt Option, def string) string {
	if v, ok := n[opt]; ok {
		return v
	}

	return def
}

// Uint returns the option's translated value as an unsigned integer, or def
// when it was dropped or malformed.
func (n Native) Uint(opt Option, def uint) uint {
	v, ok := n[opt]
	if !ok {
		return def
	}

	parsed, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def
	}

	return uint(parsed)
}

// Bool returns the option's translated value as a bool, or def when it was
// dropped.
func (n Native) Bool(opt Option, def bool) bool {
	v, ok := n[opt]
	if !ok {
		return def
	}

	return v == "true"
}

// Render produces a canonical single-line rendering of the native config,
// suitable for hashing or for style strings handed to a backend. Keys are
// sorted so the same native config always renders identically.
func (n Native) Render() string {
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, string(k))
	}

	sort.Strings(keys)

	var sb strings.Builder

	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}

		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(n[Option(k)])
	}

	return sb.String()
}

// Translate converts the unified config into the backend-native representation
// described by entry. Options the entry does not list are silently dropped;
// backends with a fixed house style receive an empty native config.
// Translation is pure and deterministic, so concurrent tasks sharing the same
// config may call it freely.
func Translate(cfg *config.Config, entry Entry) Native {
	unified := map[Option]string{
		OptIndentStyle:    cfg.IndentStyle,
		OptIndentWidth:    strconv.FormatUint(uint64(cfg.IndentWidth), 10),
		OptLineWidth:      strconv.FormatUint(uint64(cfg.LineWidth), 10),
		OptLineEnding:     cfg.LineEnding,
		OptQuotes:         cfg.Quotes,
		OptSemicolons:     cfg.Semicolons,
		OptTrailingComma:  cfg.TrailingComma,
		OptBracketSpacing: strconv.FormatBool(cfg.BracketSpacing),
		OptBraceStyle:     cfg.BraceStyle,
	}

	native := make(Native, len(entry.Options))

	for _, opt := range entry.Options {
		if v, ok := unified[opt]; ok {
			native[opt] = v
		}
	}

	return native
}
