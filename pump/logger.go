package pump

// Logger accepts debug traffic from the drain loops and the reaper.
// A *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
}

// nopLogger is the default Logger; it drops everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

// AbbrevMaxLen caps line content quoted in log traffic.
const AbbrevMaxLen = 65

func abbrev(x string) string {
	if len(x) > AbbrevMaxLen {
		return x[0:AbbrevMaxLen-1] + "..."
	}
	return x
}
