package schema

import (
	"fmt"
	"strings"
)

// Kind is the semantic type of a column. It decides which comparison
// operators a predicate on that column may use.
type Kind int

const (
	KindInvalid Kind = iota
	KindText
	KindBoolean
	KindNumeric
	KindOpaque
	KindTemporal
)

var kindNames = map[Kind]string{
	KindText:     "text",
	KindBoolean:  "boolean",
	KindNumeric:  "numeric",
	KindOpaque:   "opaque",
	KindTemporal: "temporal",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a schema source name ("text", "numeric", ...) to a Kind.
// A few common aliases are accepted so CUE and YAML schemas can use the
// vocabulary of the column type instead.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string":
		return KindText, nil
	case "boolean", "bool":
		return KindBoolean, nil
	case "numeric", "int", "integer", "float", "number":
		return KindNumeric, nil
	case "opaque", "uuid", "id":
		return KindOpaque, nil
	case "temporal", "time", "timestamp", "date":
		return KindTemporal, nil
	}
	return KindInvalid, fmt.Errorf("unknown column kind %q", s)
}
