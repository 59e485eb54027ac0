package remote

import "context"

type messageKey struct{}

// WithMessage attaches a commit message to ctx. Put and Remove use it instead of
// their default "Create|Update|Delete <path>" message.
func WithMessage(ctx context.Context, message string) context.Context {
	return context.WithValue(ctx, messageKey{}, message)
}

// MessageFrom returns the commit message attached to ctx or fallback if there is none
func MessageFrom(ctx context.Context, fallback string) string {
	if msg, ok := ctx.Value(messageKey{}).(string); ok && msg != "" {
		return msg
	}
	return fallback
}
