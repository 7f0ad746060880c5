package workflow

// ChatMode says how the order chat is presented.
type ChatMode string

const (
	ChatHidden    ChatMode = "hidden"
	ChatReadOnly  ChatMode = "read_only"
	ChatReadWrite ChatMode = "read_write"
)

func ChatModeFor(s Status) ChatMode {
	switch {
	case s.Active():
		return ChatReadWrite
	case s == StatusCompleted:
		return ChatReadOnly
	default:
		return ChatHidden
	}
}

func (m ChatMode) CanRead() bool {
	return m == ChatReadOnly || m == ChatReadWrite
}

func (m ChatMode) CanWrite() bool {
	return m == ChatReadWrite
}
