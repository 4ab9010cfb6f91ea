package enums

// MessageKind buckets message-center entries for filtering in the client.
type MessageKind string

const (
	MessageKindOrder     MessageKind = "order"
	MessageKindInventory MessageKind = "inventory"
	MessageKindStaff     MessageKind = "staff"
	MessageKindSystem    MessageKind = "system"
)

var validMessageKinds = []MessageKind{
	MessageKindOrder,
	MessageKindInventory,
	MessageKindStaff,
	MessageKindSystem,
}

// IsValid reports whether the value is a known MessageKind.
func (m MessageKind) IsValid() bool {
	for _, candidate := range validMessageKinds {
		if candidate == m {
			return true
		}
	}
	return false
}
