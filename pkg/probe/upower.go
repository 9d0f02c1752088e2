package probe

import (
	"context"

	"github.com/fieldunit/fwwatch/pkg/logging"
	dbus "github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const (
	upowerDest        = "org.freedesktop.UPower"
	upowerIface       = "org.freedesktop.UPower"
	upowerDeviceIface = "org.freedesktop.UPower.Device"

	upowerPath        dbus.ObjectPath = "/org/freedesktop/UPower"
	displayDevicePath dbus.ObjectPath = "/org/freedesktop/UPower/devices/DisplayDevice"
)

var _ Power = (*UPower)(nil)

type propertyFunc func(ctx context.Context, path dbus.ObjectPath, iface, name string) (dbus.Variant, error)

// UPower reads the host's power state from the UPower daemon on the system
// bus. A host without a battery sensor, or without UPower at all, is reported
// as unpowered.
type UPower struct {
	log      logging.Logger
	property propertyFunc
}

func NewUPower(log logging.Logger) *UPower {
	return &UPower{log: log, property: systemBusProperty}
}

func (u *UPower) IsPowered(ctx context.Context) bool {
	present, err := u.boolProperty(ctx, displayDevicePath, upowerDeviceIface, "IsPresent")
	if err != nil {
		u.log.WithError(err).Warn("unable to determine battery status")
		return false
	}
	if !present {
		u.log.Warn("unable to determine battery status, no battery sensor present")
		return false
	}

	onBattery, err := u.boolProperty(ctx, upowerPath, upowerIface, "OnBattery")
	if err != nil {
		u.log.WithError(err).Warn("unable to determine power source")
		return false
	}
	return !onBattery
}

func (u *UPower) boolProperty(ctx context.Context, path dbus.ObjectPath, iface, name string) (bool, error) {
	v, err := u.property(ctx, path, iface, name)
	if err != nil {
		return false, err
	}
	b, ok := v.Value().(bool)
	if !ok {
		return false, errors.Errorf("property %s.%s is %s, not a boolean", iface, name, v.Signature())
	}
	return b, nil
}

func systemBusProperty(ctx context.Context, path dbus.ObjectPath, iface, name string) (dbus.Variant, error) {
	// SystemBus is shared by the process and must not be closed here.
	conn, err := dbus.SystemBus()
	if err != nil {
		return dbus.Variant{}, errors.Wrap(err, "unable to connect to system bus")
	}
	var v dbus.Variant
	err = conn.Object(upowerDest, path).
		CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, iface, name).
		Store(&v)
	if err != nil {
		return dbus.Variant{}, errors.Wrapf(err, "unable to query %s.%s", iface, name)
	}
	return v, nil
}
