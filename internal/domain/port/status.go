package port

import "context"

// StatusPublisher announces the final run status to interested listeners
// (monitoring, the launcher's dashboard). Best effort: publish failures never
// change the run outcome.
type StatusPublisher interface {
	PublishRunStatus(ctx context.Context, msg []byte) error
}
