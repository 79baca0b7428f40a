package api

import (
	"bytes"
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"

	"github.com/maktabaapp/maktaba-server/internal/domain"
)

// EntityRef is the request form of a reference: an ID string, a name
// string, or an object with one of id, _id, name or title.
type EntityRef domain.EntityRef

// UnmarshalJSON implements json.Unmarshaler.
func (r *EntityRef) UnmarshalJSON(data []byte) error {
	return (*domain.EntityRef)(r).UnmarshalJSON(data)
}

// Schema implements huma.SchemaProvider.
func (EntityRef) Schema(huma.Registry) *huma.Schema {
	return refSchema()
}

func refSchema() *huma.Schema {
	return &huma.Schema{
		Description: "An existing ID, a name, or an object with id, _id, name or title",
		OneOf: []*huma.Schema{
			{Type: huma.TypeString},
			{Type: huma.TypeObject},
		},
	}
}

// Ref converts to the domain type.
func (r EntityRef) Ref() domain.EntityRef {
	return domain.EntityRef(r)
}

// RefList is the request form of a list of references. A single reference
// is accepted where a list is expected.
type RefList domain.RefList

// UnmarshalJSON implements json.Unmarshaler.
func (l *RefList) UnmarshalJSON(data []byte) error {
	return (*domain.RefList)(l).UnmarshalJSON(data)
}

// Schema implements huma.SchemaProvider.
func (RefList) Schema(huma.Registry) *huma.Schema {
	return &huma.Schema{
		Description: "A reference or an array of references",
		OneOf: []*huma.Schema{
			{Type: huma.TypeString},
			{Type: huma.TypeObject},
			{Type: huma.TypeArray, Items: refSchema()},
		},
	}
}

// Refs converts to the domain type.
func (l RefList) Refs() domain.RefList {
	return domain.RefList(l)
}

// BookNumberBound is a book number range bound exactly as the client sent
// it. Numbers and strings are both accepted so that "3" and 3 mean the same
// and a non-integer bound reaches the service to be reported as such.
type BookNumberBound string

// UnmarshalJSON implements json.Unmarshaler.
func (b *BookNumberBound) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*b = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = BookNumberBound(s)
	default:
		*b = BookNumberBound(data)
	}
	return nil
}

// Schema implements huma.SchemaProvider.
func (BookNumberBound) Schema(huma.Registry) *huma.Schema {
	return &huma.Schema{
		Description: "Book number as an integer or a string holding one",
		OneOf: []*huma.Schema{
			{Type: huma.TypeNumber},
			{Type: huma.TypeString},
		},
	}
}

func optionalRefs(l *RefList) *domain.RefList {
	if l == nil {
		return nil
	}
	refs := l.Refs()
	return &refs
}

func optionalRef(r *EntityRef) *domain.EntityRef {
	if r == nil {
		return nil
	}
	ref := r.Ref()
	return &ref
}
