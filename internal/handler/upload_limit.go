package handler

import "strconv"

// fileTooLargeMessage names the configured limit in the unit an operator
// would have written it in.
func fileTooLargeMessage(limit int64) string {
	return "file exceeds the " + humanSize(limit) + " upload limit"
}

func humanSize(n int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
	)
	switch {
	case n >= mb && n%mb == 0:
		return strconv.FormatInt(n/mb, 10) + "MB"
	case n >= mb:
		return strconv.FormatFloat(float64(n)/mb, 'f', 1, 64) + "MB"
	case n >= kb && n%kb == 0:
		return strconv.FormatInt(n/kb, 10) + "KB"
	default:
		return strconv.FormatInt(n, 10) + "B"
	}
}
