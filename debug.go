package spislave

import (
	"context"
	"log/slog"
)

// levelTrace logs are emitted on every clock edge and are far too verbose
// for anything but debugging a single transaction.
const levelTrace slog.Level = slog.LevelDebug - 1

func (s *Slave) debug(msg string, attrs ...slog.Attr) {
	s.logattrs(slog.LevelDebug, msg, attrs...)
}

func (s *Slave) trace(msg string, attrs ...slog.Attr) {
	s.logattrs(levelTrace, msg, attrs...)
}

func (s *Slave) logattrs(level slog.Level, msg string, attrs ...slog.Attr) {
	if s.logger != nil {
		s.logger.LogAttrs(context.Background(), level, msg, attrs...)
	}
}
