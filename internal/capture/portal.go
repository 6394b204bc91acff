package capture

// SourceTypes is the xdg-desktop-portal ScreenCast source bitmask.
type SourceTypes uint32

const (
	SourceMonitor SourceTypes = 1
	SourceWindow  SourceTypes = 2
	SourceVirtual SourceTypes = 4
)

func (s SourceTypes) String() string {
	if s == 0 {
		return "none"
	}
	var out string
	for _, n := range []struct {
		bit  SourceTypes
		name string
	}{{SourceMonitor, "monitor"}, {SourceWindow, "window"}, {SourceVirtual, "virtual"}} {
		if s&n.bit == 0 {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += n.name
	}
	return out
}
