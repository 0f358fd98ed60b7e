package messaging

type MessageBuilder struct {
	message *Message
}

// NewMessage starts a message of msgType belonging to session, with a fresh
// message id and the current timestamp.
func NewMessage(msgType Type, session string) *MessageBuilder {
	return &MessageBuilder{
		message: &Message{
			Header: Header{
				MsgID:    generateID(),
				MsgType:  msgType,
				Session:  session,
				Username: "kernelhub",
				Date:     timestamp(),
				Version:  ProtocolVersion,
			},
			Metadata: Content{},
			Content:  Content{},
		},
	}
}

// NewReply starts a message answering parent. The reply shares the parent's
// session and references it through the parent header.
func NewReply(parent *Message, msgType Type) *MessageBuilder {
	return NewMessage(msgType, parent.Header.Session).Parent(parent.Header)
}

func (mb *MessageBuilder) Parent(parent Header) *MessageBuilder {
	mb.message.ParentHeader = parent
	return mb
}

func (mb *MessageBuilder) Channel(channel Channel) *MessageBuilder {
	mb.message.Channel = channel
	return mb
}

func (mb *MessageBuilder) Content(content Content) *MessageBuilder {
	if content == nil {
		content = Content{}
	}
	mb.message.Content = content
	return mb
}

func (mb *MessageBuilder) Build() *Message {
	return mb.message
}
