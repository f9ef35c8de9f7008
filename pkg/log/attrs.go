package log

import "log/slog"

func RunID[T ~string](id T) slog.Attr {
	return slog.String("run_id", string(id))
}

func Workflow[T ~string](name T) slog.Attr {
	return slog.String("workflow", string(name))
}

func StepID[T ~int64](id T) slog.Attr {
	return slog.Int64("step_id", int64(id))
}

func StepName(name string) slog.Attr {
	return slog.String("step", name)
}

func Func[T ~string](name T) slog.Attr {
	return slog.String("func", string(name))
}

func Output[T ~string](name T) slog.Attr {
	return slog.String("output", string(name))
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Group(n int) slog.Attr {
	return slog.Int("group", n)
}

func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Duration records elapsed time in milliseconds
func Duration(ms int64) slog.Attr {
	return slog.Int64("duration", ms)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
