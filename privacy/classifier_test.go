package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_KnownFields(t *testing.T) {
	tests := []struct {
		field string
		want  Class
	}{
		{"page_name", Identifier},
		{"page", Identifier},
		{"originalName", Identifier},
		{"content", FreeText},
		{"body", FreeText},
		{"query", StructuredQuery},
		{"inputs", StructuredQuery},
		{"file_path", FilePath},
		{"graphPath", FilePath},
		{"uuid", Opaque},
		{"block_id", Opaque},
		{"id", Opaque},
		{"parent_block_id", Opaque},
		{"limit", Safe},
		{"include_children", Safe},
		{"include_journals", Safe},
		{"error_type", Safe},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.field, HintNone))
		})
	}
}

func TestClassify_UnknownDefaultsToFreeText(t *testing.T) {
	for _, field := range []string{"", "notes", "whatever", "properties", "result"} {
		assert.Equal(t, FreeText, Classify(field, HintNone), "field %q", field)
	}
}

func TestClassify_HintOnlyAppliesToUnknownNames(t *testing.T) {
	assert.Equal(t, Opaque, Classify("target", HintUUID))
	assert.Equal(t, Identifier, Classify("journal_date", HintPageName))
	assert.Equal(t, StructuredQuery, Classify("filter", HintQuery))
	assert.Equal(t, FreeText, Classify("content", HintUUID), "table wins over hint")
	assert.Equal(t, FilePath, Classify("output_path", HintText), "path rule wins over hint")
	assert.Equal(t, FreeText, Classify("mystery", Hint("bogus")))
}

func TestHints_LookupNil(t *testing.T) {
	var h Hints
	assert.Equal(t, HintNone, h.Lookup("anything"))
}

func TestClass_String(t *testing.T) {
	assert.Equal(t, "identifier", Identifier.String())
	assert.Equal(t, "safe", Safe.String())
	assert.Equal(t, "unknown", Class(42).String())
}

func TestPseudonymKind(t *testing.T) {
	assert.Equal(t, "page", pseudonymKind("page_id"))
	assert.Equal(t, "block", pseudonymKind("uuid"))
	assert.Equal(t, "block", pseudonymKind("block_id"))
}
