//go:build linux

package capture

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	portalObjectName = "org.freedesktop.portal.Desktop"
	portalObjectPath = "/org/freedesktop/portal/desktop"
	screenCastIface  = "org.freedesktop.portal.ScreenCast"
)

// ScreenSourceTypes asks the desktop portal which screen sources it can share.
func ScreenSourceTypes() (SourceTypes, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return 0, fmt.Errorf("session bus: %w", err)
	}

	obj := conn.Object(portalObjectName, portalObjectPath)
	value, err := obj.GetProperty(screenCastIface + ".AvailableSourceTypes")
	if err != nil {
		return 0, fmt.Errorf("read AvailableSourceTypes: %w", err)
	}

	types, ok := value.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("property AvailableSourceTypes returned unexpected type %T", value.Value())
	}
	return SourceTypes(types), nil
}
