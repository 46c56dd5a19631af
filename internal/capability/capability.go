// Package capability implements the argument white-list filter that is
// the last line of defence against argument injection before a helper
// process is exec'd. Every token passed to the packet-filter helper must
// match at least one compiled pattern; anything that doesn't is rejected as
// a batch, naming every offending token.
package capability

import (
	"regexp"
	"strings"

	"github.com/whitebite/isolate-core/internal/errkit"
)

// patterns is the compiled white-list. Order doesn't matter — a token is
// accepted if it matches ANY of them.
var patterns = []*regexp.Regexp{
	// recognised flag names, e.g. --wf-tcp, --dpi-desync, --wssize
	regexp.MustCompile(`^--[a-z][a-z0-9-]*$`),
	// comma-separated port lists, e.g. 80,443 or 443
	regexp.MustCompile(`^[0-9]+(,[0-9]+)*$`),
	// named protocols
	regexp.MustCompile(`^(tcp|udp|http|https|quic|tls)$`),
	// named desync methods, single or comma-combined
	regexp.MustCompile(`^(fake|split|split2|disorder|disorder2|fakeddisorder|multisplit|multidisorder|ipfrag1|ipfrag2|syndata|fakedsplit)(,(fake|split|split2|disorder|disorder2|fakeddisorder|multisplit|multidisorder|ipfrag1|ipfrag2|syndata|fakedsplit))*$`),
	// named fooling methods
	regexp.MustCompile(`^(badseq|badsum|md5sig|datanoack|hopbyhop|hopbyhop2)(,(badseq|badsum|md5sig|datanoack|hopbyhop|hopbyhop2))*$`),
	// absolute Windows paths
	regexp.MustCompile(`^[A-Za-z]:\\[^;&|<>$` + "`" + `]*$`),
	// pure numeric values
	regexp.MustCompile(`^-?[0-9]+$`),
	// min:max:delta triplets
	regexp.MustCompile(`^[0-9]+:[0-9]+:[0-9]+$`),
	// cutoff tokens: n/d/s followed by digits (e.g. n2, d3, s1500)
	regexp.MustCompile(`^[nds][0-9]+$`),
	// generic alphanumeric-with-dot-hyphen: requires an embedded separator
	// so bare shell words ("rm", "cmd") never slip through as "generic
	// values" — this category is for things like hostnames, filenames with
	// an extension, or version strings.
	regexp.MustCompile(`^[A-Za-z0-9-]+([._][A-Za-z0-9-]+)+$`),
}

// Tokenize splits a full command line the way the capability filter expects
// it: split on whitespace, then further split `--flag=value` into two
// tokens.
func Tokenize(cmdline string) []string {
	var tokens []string
	for _, raw := range strings.Fields(cmdline) {
		if strings.HasPrefix(raw, "--") {
			if idx := strings.Index(raw, "="); idx > 0 {
				tokens = append(tokens, raw[:idx], raw[idx+1:])
				continue
			}
		}
		tokens = append(tokens, raw)
	}
	return tokens
}

// tokenMatches reports whether a single token matches at least one
// white-listed pattern.
func tokenMatches(token string) bool {
	for _, p := range patterns {
		if p.MatchString(token) {
			return true
		}
	}
	return false
}

// ValidateTokens checks a pre-tokenised argument list, returning a single
// security error naming every offending token when any fail.
func ValidateTokens(tokens []string) error {
	var offending []string
	for _, t := range tokens {
		if !tokenMatches(t) {
			offending = append(offending, t)
		}
	}
	if len(offending) > 0 {
		return errkit.SecurityError("rejected arguments: " + strings.Join(offending, ", ")).
			WithDetail("offending_tokens", offending)
	}
	return nil
}

// ValidateCommandLine tokenises and validates a full command line string.
func ValidateCommandLine(cmdline string) error {
	return ValidateTokens(Tokenize(cmdline))
}
