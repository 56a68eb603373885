package port

import (
	"context"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
)

// ReportSink records the finished run report in an audit store. Sink failures
// are logged and ignored: the object-storage copy of the report is the
// durable artifact, the sink is a convenience for querying.
type ReportSink interface {
	Store(ctx context.Context, report *entity.RunReport) error
}
