// Package messaging defines the deserialized kernel message model shared by
// transports and the kernel tracker.
//
// Messages follow the Jupyter messaging protocol layout: a header carrying
// the message id and type, a parent header that references the request a
// message answers, free-form metadata, and content. The tracker only needs
// three things from a message:
//
//	msg.Type()     // logical message type, e.g. TypeStatus
//	msg.ParentID() // correlation id of the originating request
//	msg.Content    // type-specific payload
//
// Outgoing messages are built with MessageBuilder:
//
//	msg := messaging.NewMessage(messaging.TypeExecuteRequest, session).
//	    Channel(messaging.ChannelShell).
//	    Content(messaging.Content{"code": "1+1"}).
//	    Build()
//
// Replies that reference a request are built with NewReply, which copies the
// request header into the parent header.
package messaging
