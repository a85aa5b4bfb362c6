package pipeline

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogWarningSink reports non-fatal faults through zerolog. It is the
// default sink when no other is wired.
type LogWarningSink struct{}

func (LogWarningSink) Warn(ctx context.Context, event string, err error) {
	log.Ctx(ctx).Warn().Err(err).Str("event", event).Msg("non-fatal fault")
}
