package privacy

// Class is the sensitivity category of a record field.
type Class int

const (
	Identifier Class = iota
	FreeText
	StructuredQuery
	FilePath
	Opaque
	Safe
)

func (c Class) String() string {
	switch c {
	case Identifier:
		return "identifier"
	case FreeText:
		return "free_text"
	case StructuredQuery:
		return "structured_query"
	case FilePath:
		return "file_path"
	case Opaque:
		return "opaque"
	case Safe:
		return "safe"
	default:
		return "unknown"
	}
}
