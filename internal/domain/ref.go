package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maktabaapp/maktaba-server/internal/id"
)

// RefKind tells which form an EntityRef arrived in.
type RefKind uint8

// Reference forms.
const (
	RefNone   RefKind = iota // empty input; resolves to no reference
	RefID                    // bare ID string
	RefObject                // object carrying an existing ID
	RefName                  // natural key (name or title) to find or create
)

// EntityRef is a reference to a person, publisher, category or subject as a
// client may send it: a bare ID, an object with an ID, or a name.
//
// JSON decoding accepts:
//
//	"person-V1StGXR8_Z5jdHi6B-myT"   -> RefID
//	{"id": "..."} or {"_id": "..."}  -> RefObject
//	{"name": "..."} or {"title": "..."} or "ابن تيمية" -> RefName
//	null, "", {}                     -> RefNone
type EntityRef struct {
	Kind RefKind
	ID   string
	Name string
}

// IDRef references an existing record by bare ID.
func IDRef(id string) EntityRef {
	return EntityRef{Kind: RefID, ID: id}
}

// ObjectRef references an existing record by an embedded object's ID.
func ObjectRef(id string) EntityRef {
	return EntityRef{Kind: RefObject, ID: id}
}

// NameRef references a record by natural key, creating it when absent.
func NameRef(name string) EntityRef {
	return EntityRef{Kind: RefName, Name: name}
}

// ParseRef classifies a bare string. Strings shaped like generated IDs are
// IDs; anything else non-blank is a name.
func ParseRef(s string) EntityRef {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return EntityRef{}
	case id.Valid(s):
		return IDRef(s)
	default:
		return NameRef(s)
	}
}

// IsZero reports whether the reference is empty.
func (r EntityRef) IsZero() bool {
	return r.Kind == RefNone
}

// String returns the ID or name carried by the reference.
func (r EntityRef) String() string {
	if r.Kind == RefName {
		return r.Name
	}
	return r.ID
}

type refObject struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	Name     string `json:"name"`
	Title    string `json:"title"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *EntityRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = EntityRef{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ParseRef(s)
		return nil
	case '{':
		var obj refObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		switch {
		case strings.TrimSpace(obj.ID) != "":
			*r = ObjectRef(strings.TrimSpace(obj.ID))
		case strings.TrimSpace(obj.LegacyID) != "":
			*r = ObjectRef(strings.TrimSpace(obj.LegacyID))
		case strings.TrimSpace(obj.Name) != "":
			*r = NameRef(strings.TrimSpace(obj.Name))
		case strings.TrimSpace(obj.Title) != "":
			*r = NameRef(strings.TrimSpace(obj.Title))
		default:
			*r = EntityRef{}
		}
		return nil
	default:
		return fmt.Errorf("entity reference must be a string or object, got %s", data)
	}
}

// MarshalJSON implements json.Marshaler.
func (r EntityRef) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RefID:
		return json.Marshal(r.ID)
	case RefObject:
		return json.Marshal(map[string]string{"id": r.ID})
	case RefName:
		return json.Marshal(map[string]string{"name": r.Name})
	default:
		return []byte("null"), nil
	}
}

// RefList is an ordered list of references. It decodes from either a single
// reference or an array of references.
type RefList []EntityRef

// UnmarshalJSON implements json.Unmarshaler.
func (l *RefList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	if data[0] == '[' {
		var refs []EntityRef
		if err := json.Unmarshal(data, &refs); err != nil {
			return err
		}
		*l = refs
		return nil
	}

	var single EntityRef
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = RefList{single}
	return nil
}

// Names builds a RefList of name references, a convenience for tests and the CLI.
func Names(names ...string) RefList {
	refs := make(RefList, len(names))
	for i, n := range names {
		refs[i] = NameRef(n)
	}
	return refs
}
