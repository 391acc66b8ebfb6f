package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// TextArray maps a Go string slice onto a Postgres text[] column using the
// array literal format, which also round-trips through sqlite TEXT columns.
type TextArray []string

// GormDBDataType picks the native array type on Postgres and plain text elsewhere.
func (TextArray) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (a *TextArray) Scan(src any) error {
	if src == nil {
		*a = TextArray{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return a.parse(v)
	case []byte:
		return a.parse(string(v))
	default:
		return fmt.Errorf("TextArray: unsupported Scan type %T", src)
	}
}

func (a TextArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	parts := make([]string, 0, len(a))
	for _, item := range a {
		escaped := strings.ReplaceAll(item, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		parts = append(parts, `"`+escaped+`"`)
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

func (a *TextArray) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || s == "{}" {
		*a = TextArray{}
		return nil
	}
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return fmt.Errorf("TextArray: malformed literal %q", s)
	}
	body := s[1 : len(s)-1]

	out := []string{}
	var (
		current  strings.Builder
		inQuotes bool
		escaped  bool
		quoted   bool
	)
	flush := func() {
		value := current.String()
		if !quoted {
			value = strings.TrimSpace(value)
		}
		out = append(out, value)
		current.Reset()
		quoted = false
	}
	for _, r := range body {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && inQuotes:
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
			quoted = true
		case r == ',' && !inQuotes:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	if inQuotes {
		return fmt.Errorf("TextArray: unterminated quote in %q", s)
	}
	flush()
	*a = TextArray(out)
	return nil
}
