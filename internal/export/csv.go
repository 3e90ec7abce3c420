package export

import "strings"

// Serialize renders rows as CSV text for the given column keys: one header
// line followed by one line per row, joined with "\n".
func Serialize(rows []ExportRow, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", &SerializationError{Err: ErrNoColumns}
	}

	var sb strings.Builder

	header := make([]string, len(keys))
	for i, k := range keys {
		header[i] = EscapeField(HeaderFor(k))
	}
	sb.WriteString(strings.Join(header, ","))

	fields := make([]string, len(keys))
	for i := range rows {
		values, err := rows[i].Values(keys)
		if err != nil {
			return "", &SerializationError{Err: err}
		}
		for j, v := range values {
			fields[j] = EscapeField(v)
		}
		sb.WriteByte('\n')
		sb.WriteString(strings.Join(fields, ","))
	}

	return sb.String(), nil
}

// EscapeField quotes a field containing a comma, double quote or line break,
// doubling any inner quotes. Other fields are returned unchanged.
func EscapeField(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
