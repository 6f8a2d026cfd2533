package privacy

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	IdentifierPrefixLen = 4
	IdentifierSuffixLen = 4

	MaskToken   = "***"
	EmptyToken  = "[empty]"
	Placeholder = "[redacted]"
)

// MaskIdentifier keeps IdentifierPrefixLen leading and IdentifierSuffixLen
// trailing runes around MaskToken, so "My Private Notes" becomes
// "My P***otes". Values shorter than twice the kept length keep only their
// first rune.
func MaskIdentifier(s string) string {
	if s == "" {
		return EmptyToken
	}
	r := []rune(s)
	if len(r) < 2*(IdentifierPrefixLen+IdentifierSuffixLen) {
		return string(r[0]) + MaskToken
	}
	return string(r[:IdentifierPrefixLen]) + MaskToken + string(r[len(r)-IdentifierSuffixLen:])
}

// DescribeContent replaces text with its character count.
func DescribeContent(s string) string {
	return fmt.Sprintf("[content_%d_chars]", utf8.RuneCountInString(s))
}

// DescribeQuery replaces a query with its character count.
func DescribeQuery(s string) string {
	return fmt.Sprintf("[datalog_query_%d_chars]", utf8.RuneCountInString(s))
}

// MaskURL keeps the scheme and host of an absolute URL and replaces
// everything after the host with MaskToken. Credentials are dropped. Values
// that are not absolute URLs go through MaskPath.
func MaskURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return MaskPath(s)
	}
	masked := u.Scheme + "://" + u.Host
	if strings.Trim(u.Path, "/") != "" || u.RawQuery != "" || u.Fragment != "" {
		masked += "/" + MaskToken
	}
	return masked
}

// MaskPath keeps any leading root plus the first and last segment and
// collapses everything between them into one MaskToken segment.
func MaskPath(p string) string {
	if p == "" {
		return EmptyToken
	}

	sep := "/"
	if i := strings.IndexAny(p, `/\`); i >= 0 {
		sep = p[i : i+1]
	}

	trimmed := strings.TrimLeft(p, `/\`)
	root := p[:len(p)-len(trimmed)]

	segments := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '/' || r == '\\' })
	if len(segments) <= 2 {
		return p
	}

	return root + segments[0] + sep + MaskToken + sep + segments[len(segments)-1]
}
