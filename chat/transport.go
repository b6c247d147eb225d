package chat

import "context"

// Transport is the conversation surface a turn streams into. SendSources is
// called once, before any token, with the citation elements in bundle order.
// StreamToken appends one increment to the in-progress message. FinishMessage
// is called only when the stream reached a valid terminal result; after a
// mid-stream failure the tokens already streamed stay visible as a partial
// message and FinishMessage is never called.
type Transport interface {
	SendSources(ctx context.Context, elements []SourceElement) error
	StreamToken(ctx context.Context, token string) error
	FinishMessage(ctx context.Context, answer string) error
}
