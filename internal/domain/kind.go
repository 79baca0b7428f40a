package domain

// EntityKind names a referenced record type. It doubles as the ID prefix.
type EntityKind string

// Referenced record kinds.
const (
	KindPerson    EntityKind = "person"
	KindPublisher EntityKind = "publisher"
	KindCategory  EntityKind = "category"
	KindSubject   EntityKind = "subject"
)

// IsValid checks if the kind is a recognized value.
func (k EntityKind) IsValid() bool {
	switch k {
	case KindPerson, KindPublisher, KindCategory, KindSubject:
		return true
	default:
		return false
	}
}

// ID prefixes for records that are not referenced by name.
const (
	PrefixBook   = "book"
	PrefixBorrow = "borrow"
)
