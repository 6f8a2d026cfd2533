package privacy

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lengthDescriptor = regexp.MustCompile(`^\[(?:content|datalog_query)_(\d+)_chars\]$`)

func descriptorLength(t *testing.T, token string) int {
	t.Helper()
	m := lengthDescriptor.FindStringSubmatch(token)
	require.Len(t, m, 2, "not a length descriptor: %q", token)
	n, err := strconv.Atoi(m[1])
	require.NoError(t, err)
	return n
}

func TestMaskIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Private Notes", "My P***otes"},
		{"Quarterly Planning Review", "Quar***view"},
		{"TODO", "T***"},
		{"Project Alpha", "P***"},
		{"x", "x***"},
		{"", EmptyToken},
		{"Überraschungsparty!", "Über***rty!"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskIdentifier(tt.in))
		})
	}
}

func TestMaskIdentifier_FixedWidthRegardlessOfLength(t *testing.T) {
	short := MaskIdentifier(strings.Repeat("a", 16))
	long := MaskIdentifier(strings.Repeat("a", 500))
	assert.Equal(t, len(short), len(long))
}

func TestDescribeContent_ReportsExactCharacterCount(t *testing.T) {
	inputs := []string{
		"",
		"a",
		"Secret meeting notes",
		"line one\nline two",
		"日本語のメモ",
		"emoji 🎉 party",
		strings.Repeat("x", 10000),
	}

	for _, s := range inputs {
		got := DescribeContent(s)
		assert.Equal(t, utf8.RuneCountInString(s), descriptorLength(t, got))
		assert.Regexp(t, `^\[content_\d+_chars\]$`, got)
	}
}

func TestDescribeQuery(t *testing.T) {
	query := `[:find ?id :where [?id :block/marker "TODO"]]`
	require.Equal(t, 45, utf8.RuneCountInString(query))

	assert.Equal(t, "[datalog_query_45_chars]", DescribeQuery(query))
	assert.Equal(t, "[datalog_query_0_chars]", DescribeQuery(""))
}

func TestMaskPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/Users/john/Documents/Logseq", "/Users/***/Logseq"},
		{"/home/jane/graphs/work/pages/secret.md", "/home/***/secret.md"},
		{`C:\Users\jane\graphs\work`, `C:\***\work`},
		{"relative/dir/file.md", "relative/***/file.md"},
		{"logs/logseq-mcp.log", "logs/logseq-mcp.log"},
		{"/tmp/", "/tmp/"},
		{"file.md", "file.md"},
		{"", EmptyToken},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskPath(tt.in))
		})
	}
}

func TestMaskURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/secret/x", "https://example.com/***"},
		{"https://user:pw@example.com:8443/a?q=1", "https://example.com:8443/***"},
		{"http://localhost:12315/api#frag", "http://localhost:12315/***"},
		{"https://example.com", "https://example.com"},
		{"https://example.com/", "https://example.com"},
		{"/home/jane/graphs/work", "/home/***/work"},
		{"", EmptyToken},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskURL(tt.in))
		})
	}
}
