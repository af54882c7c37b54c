package services

import (
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

var errEmptyRef = errors.New("identifier is required")

// Ref identifies a record either by its internal numeric id or by an external key
// (uuid, or slug for namespaces). It is decided once at the boundary.
type Ref struct {
	id  uint
	key string
}

// ByID references a record by internal id.
func ByID(id uint) Ref {
	return Ref{id: id}
}

// ByKey references a record by external key.
func ByKey(key string) Ref {
	return Ref{key: strings.TrimSpace(key)}
}

// ParseRef classifies raw input: an all-digit value is an internal id, anything else an
// external key.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, errEmptyRef
	}
	if id, err := strconv.ParseUint(raw, 10, 64); err == nil && id > 0 && uint64(uint(id)) == id {
		return ByID(uint(id)), nil
	}
	return ByKey(raw), nil
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool {
	return r.id == 0 && r.key == ""
}

// InternalID returns the id when the reference is numeric.
func (r Ref) InternalID() (uint, bool) {
	return r.id, r.id != 0
}

// ExternalKey returns the key when the reference is external.
func (r Ref) ExternalKey() (string, bool) {
	return r.key, r.id == 0 && r.key != ""
}

func (r Ref) String() string {
	if r.id != 0 {
		return strconv.FormatUint(uint64(r.id), 10)
	}
	return r.key
}

// scope narrows query to the referenced row. keyColumns lists the columns an external key
// may match; it defaults to uuid.
func (r Ref) scope(query *gorm.DB, table string, keyColumns ...string) *gorm.DB {
	prefix := ""
	if table != "" {
		prefix = table + "."
	}
	if r.id != 0 {
		return query.Where(prefix+"id = ?", r.id)
	}
	if len(keyColumns) == 0 {
		keyColumns = []string{"uuid"}
	}
	conds := make([]string, len(keyColumns))
	args := make([]any, len(keyColumns))
	for i, column := range keyColumns {
		conds[i] = prefix + column + " = ?"
		args[i] = r.key
	}
	return query.Where("("+strings.Join(conds, " OR ")+")", args...)
}
