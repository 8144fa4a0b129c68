package protocol

import "context"

// Notifier sends a notification to the client.
type Notifier interface {
	Notify(ctx context.Context, method string, params any) error
}

// ShowMessage asks the client to display a message to the user.
func ShowMessage(ctx context.Context, n Notifier, msgType MessageType, message string) error {
	return n.Notify(ctx, MethodWindowShowMessage, ShowMessageParams{
		Type:    msgType,
		Message: message,
	})
}

// PublishDecorations pushes the inline icon decorations of a document.
func PublishDecorations(ctx context.Context, n Notifier, params PublishDecorationsParams) error {
	if params.Decorations == nil {
		params.Decorations = []Decoration{}
	}
	if params.Hidden == nil {
		params.Hidden = []Range{}
	}
	return n.Notify(ctx, MethodIconifyPublishDecorations, params)
}
