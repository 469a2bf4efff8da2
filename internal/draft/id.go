package draft

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// tempPrefix tags client-generated placeholder ids on the wire and in
// draft files.
const tempPrefix = "temp_"

// EntityID identifies a draft entity. It is a two-state sum: either
// persisted server-side (numeric) or pending creation (client-generated
// temp token). The zero value means "no id yet assigned" and is treated
// as not persisted. The persisted-vs-pending distinction is the sole
// discriminant driving the save engine's create-vs-update branch.
type EntityID struct {
	num int64
	tmp string
}

// PersistedID wraps a server-assigned numeric id.
func PersistedID(n int64) EntityID {
	return EntityID{num: n}
}

// NewTempID generates a fresh pending id with a random token. Tokens are
// unique across the process lifetime, so duplicated subtrees never
// collide.
func NewTempID() EntityID {
	return EntityID{tmp: tempPrefix + uuid.NewString()[:8]}
}

// IsPersisted reports whether the id carries a server-assigned number.
func (id EntityID) IsPersisted() bool {
	return id.num > 0
}

// IsZero reports whether the id is entirely unset.
func (id EntityID) IsZero() bool {
	return id.num == 0 && id.tmp == ""
}

// Num returns the server-assigned number. Zero when not persisted.
func (id EntityID) Num() int64 {
	return id.num
}

// String renders the id the way it travels on the wire: decimal for
// persisted ids, the temp token for pending ones.
func (id EntityID) String() string {
	if id.IsPersisted() {
		return strconv.FormatInt(id.num, 10)
	}
	return id.tmp
}

// MarshalJSON encodes persisted ids as JSON numbers and pending ids as
// strings, matching the draft file format.
func (id EntityID) MarshalJSON() ([]byte, error) {
	if id.IsPersisted() {
		return json.Marshal(id.num)
	}
	if id.tmp == "" {
		return []byte("null"), nil
	}
	return json.Marshal(id.tmp)
}

// UnmarshalJSON accepts a number (persisted), a temp-prefixed string
// (pending), or null (unset).
func (id *EntityID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = EntityID{}
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var token string
		if err := json.Unmarshal(b, &token); err != nil {
			return err
		}
		if !strings.HasPrefix(token, tempPrefix) {
			return fmt.Errorf("draft: string id %q lacks %q prefix", token, tempPrefix)
		}
		*id = EntityID{tmp: token}
		return nil
	}

	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("draft: numeric id must be positive, got %d", n)
	}
	*id = EntityID{num: n}
	return nil
}
