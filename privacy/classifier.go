package privacy

import "strings"

// Hint refines classification for a field the name table does not know,
// typically taken from a tool's input schema.
type Hint string

const (
	HintNone     Hint = ""
	HintUUID     Hint = "uuid"
	HintPath     Hint = "path"
	HintQuery    Hint = "query"
	HintPageName Hint = "page_name"
	HintText     Hint = "text"
)

// Hints maps field names to schema hints for one tool.
type Hints map[string]Hint

// Lookup returns the hint for field, tolerating a nil map.
func (h Hints) Lookup(field string) Hint {
	if h == nil {
		return HintNone
	}
	return h[field]
}

var fieldClasses = map[string]Class{
	// page and graph names
	"page":          Identifier,
	"page_name":     Identifier,
	"name":          Identifier,
	"originalname":  Identifier,
	"original_name": Identifier,
	"title":         Identifier,
	"graph":         Identifier,
	"date":          Identifier,
	"journal_page":  Identifier,

	// user-authored text
	"content":       FreeText,
	"body":          FreeText,
	"block_content": FreeText,
	"text":          FreeText,
	"error":         FreeText,

	// datalog and search input
	"query":  StructuredQuery,
	"q":      StructuredQuery,
	"inputs": StructuredQuery,

	"url": FilePath,

	// database identifiers
	"uuid":            Opaque,
	"id":              Opaque,
	"block_id":        Opaque,
	"block_uuid":      Opaque,
	"parent_block_id": Opaque,
	"parent_id":       Opaque,
	"target_uuid":     Opaque,
	"page_id":         Opaque,

	// counters, flags and enum-like values
	"limit":            Safe,
	"include_children": Safe,
	"include_journals": Safe,
	"created":          Safe,
	"updated":          Safe,
	"deleted":          Safe,
	"found":            Safe,
	"success":          Safe,
	"count":            Safe,
	"total":            Safe,
	"error_type":       Safe,
	"format":           Safe,
	"journal?":         Safe,
	"journal":          Safe,
	"createdat":        Safe,
	"updatedat":        Safe,
	"level":            Safe,
}

var hintClasses = map[Hint]Class{
	HintUUID:     Opaque,
	HintPath:     FilePath,
	HintQuery:    StructuredQuery,
	HintPageName: Identifier,
	HintText:     FreeText,
}

// Classify maps a field to its sensitivity class. Known names win, then any
// name containing "path", then the hint. Everything else is FreeText.
func Classify(field string, hint Hint) Class {
	key := strings.ToLower(strings.TrimSpace(field))
	if c, ok := fieldClasses[key]; ok {
		return c
	}
	if strings.Contains(key, "path") {
		return FilePath
	}
	if c, ok := hintClasses[hint]; ok {
		return c
	}
	return FreeText
}

// pseudonymKind picks the token prefix for an Opaque field.
func pseudonymKind(field string) string {
	switch strings.ToLower(field) {
	case "page_id":
		return "page"
	default:
		return "block"
	}
}
