package log

import "strings"

func lPrint(ll SimpleLogger, lv Level, args ...any) {
	switch lv {
	case Debug:
		ll.Debug(args...)
	case Info:
		ll.Info(args...)
	case Warning:
		ll.Warning(args...)
	case Error:
		ll.Error(args...)
	case Panic:
		ll.Panic(args...)
	case Fatal:
		ll.Fatal(args...)
	}
}

func lPrintf(ll SimpleLogger, lv Level, format string, args ...any) {
	switch lv {
	case Debug:
		ll.Debugf(format, args...)
	case Info:
		ll.Infof(format, args...)
	case Warning:
		ll.Warningf(format, args...)
	case Error:
		ll.Errorf(format, args...)
	case Panic:
		ll.Panicf(format, args...)
	case Fatal:
		ll.Fatalf(format, args...)
	}
}

// sanitize removes newlines and carriage returns from string arguments
// to prevent log injection via multi-line values.
func sanitize(args ...any) []any {
	sv := make([]any, len(args))
	for i, v := range args {
		if vs, ok := v.(string); ok {
			v = strings.ReplaceAll(strings.ReplaceAll(vs, "\n", ""), "\r", "")
		}
		sv[i] = v
	}
	return sv
}

// mergeFields combines multiple field sets into one, later sets taking
// precedence, trimmed to the maximum number of entries supported.
func mergeFields(sets ...Fields) Fields {
	out := make(Fields)
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	if len(out) > maxFields {
		i := 0
		trimmed := make(Fields, maxFields)
		for k, v := range out {
			if i >= maxFields {
				break
			}
			trimmed[k] = v
			i++
		}
		return trimmed
	}
	return out
}
