package port

import "context"

// Notifier forwards a lifecycle or crossing event summary to an
// external feedback sink (chat, webhook). Mirrors the teacher's
// Notifier port shape.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	Enabled() bool
}
