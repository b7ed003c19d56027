package email

import "context"

// Message is one delivery. AttachmentPath is empty when the artifact went
// through the overflow path and the body carries the link instead.
type Message struct {
	From           string
	To             string
	Subject        string
	Body           string
	AttachmentPath string
	AttachmentName string
}

type Sender interface {
	Send(ctx context.Context, message Message) error
}
