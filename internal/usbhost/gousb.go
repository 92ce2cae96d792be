package usbhost

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"

	"github.com/rdxusb/rdxusb-go/internal/constants"
)

// GousbHost is the production Host, backed by github.com/google/gousb
// (libusb). Grounded on guiperry-HASHER's internal/driver/device/usb_device.go,
// which exercises the same NewContext → OpenDevices → Config → Interface →
// {In,Out}Endpoint lifecycle.
type GousbHost struct {
	ctx *gousb.Context
}

// NewGousbHost opens a libusb context. The context is process-wide and
// should be closed once, at program shutdown.
func NewGousbHost() *GousbHost {
	return &GousbHost{ctx: gousb.NewContext()}
}

func (h *GousbHost) Close() error {
	return h.ctx.Close()
}

func (h *GousbHost) Enumerate(ctx context.Context) ([]Descriptor, error) {
	var out []Descriptor
	devs, err := h.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true // open each device to read its strings; nothing is claimed
	})
	if err != nil && len(devs) == 0 {
		return nil, fmt.Errorf("usbhost: enumerate: %w", err)
	}
	for _, d := range devs {
		desc := descriptorFromDevice(d)
		out = append(out, desc)
		_ = d.Close()
	}
	return out, nil
}

func descriptorFromDevice(d *gousb.Device) Descriptor {
	desc := Descriptor{
		VID:     uint16(d.Desc.Vendor),
		PID:     uint16(d.Desc.Product),
		Bus:     d.Desc.Bus,
		Address: d.Desc.Address,
	}
	if s, err := d.SerialNumber(); err == nil {
		desc.Serial = s
	}
	if m, err := d.Manufacturer(); err == nil {
		desc.Manufacturer = m
	}
	if p, err := d.Product(); err == nil {
		desc.Product = p
	}
	return desc
}

func (h *GousbHost) Open(ctx context.Context, target Descriptor) (Interface, error) {
	devs, err := h.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return uint16(desc.Vendor) == target.VID && uint16(desc.Product) == target.PID
	})
	if err != nil && len(devs) == 0 {
		return nil, fmt.Errorf("usbhost: open: %w", err)
	}

	var dev *gousb.Device
	for _, d := range devs {
		if target.Serial != "" {
			if s, serr := d.SerialNumber(); serr != nil || s != target.Serial {
				_ = d.Close()
				continue
			}
		}
		if dev != nil {
			_ = d.Close()
			continue
		}
		dev = d
	}
	if dev == nil {
		return nil, ErrDeviceDisconnected
	}

	_ = dev.SetAutoDetach(true)

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		cfgNum = 1
	}
	cfg, err := dev.Config(cfgNum)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("usbhost: config: %w", err)
	}

	ifaceNum, altNum, found := findVendorInterface(dev)
	if !found {
		cfg.Close()
		dev.Close()
		return nil, ErrNoInterface
	}

	intf, err := cfg.Interface(ifaceNum, altNum)
	if err != nil {
		cfg.Close()
		dev.Close()
		return nil, ErrNoInterface
	}

	return &gousbInterface{dev: dev, cfg: cfg, intf: intf}, nil
}

// findVendorInterface scans every configuration descriptor of the device
// for the class/subclass/protocol match spec.md 4.B step 1 names.
func findVendorInterface(dev *gousb.Device) (ifaceNum, altNum int, found bool) {
	for _, cfgDesc := range dev.Desc.Configs {
		for _, ifDesc := range cfgDesc.Interfaces {
			for _, alt := range ifDesc.AltSettings {
				if uint8(alt.Class) == constants.InterfaceClass &&
					uint8(alt.SubClass) == constants.InterfaceSubClass &&
					uint8(alt.Protocol) == constants.InterfaceProtocol {
					return ifDesc.Number, alt.Alternate, true
				}
			}
		}
	}
	return 0, 0, false
}

type gousbInterface struct {
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
}

func (i *gousbInterface) ControlIn(ctx context.Context, request uint8, value, index uint16, length int) ([]byte, error) {
	buf := make([]byte, length)
	// bmRequestType: vendor, recipient=interface, direction=in
	const reqType = 0x80 | 0x40 | 0x01
	n, err := i.dev.Control(reqType, request, value, index, buf)
	if err != nil {
		return nil, classifyErr(err)
	}
	return buf[:n], nil
}

func (i *gousbInterface) ControlOut(ctx context.Context, request uint8, value, index uint16, data []byte) error {
	const reqType = 0x00 | 0x40 | 0x01
	_, err := i.dev.Control(reqType, request, value, index, data)
	if err != nil {
		return classifyErr(err)
	}
	return nil
}

func (i *gousbInterface) BulkInStream(depth int) (ReadStream, error) {
	ep, err := i.intf.InEndpoint(constants.EndpointIn & 0x7F)
	if err != nil {
		return nil, fmt.Errorf("usbhost: in endpoint: %w", err)
	}
	stream, err := ep.NewStream(constants.MaxPacketSize, depth)
	if err != nil {
		return nil, fmt.Errorf("usbhost: bulk-in stream: %w", err)
	}
	return &gousbReadStream{stream: stream}, nil
}

func (i *gousbInterface) BulkOut(ctx context.Context, data []byte) error {
	ep, err := i.intf.OutEndpoint(constants.EndpointOut)
	if err != nil {
		return fmt.Errorf("usbhost: out endpoint: %w", err)
	}
	_, err = ep.WriteContext(ctx, data)
	if err != nil {
		return classifyErr(err)
	}
	return nil
}

func (i *gousbInterface) Close() error {
	i.intf.Close()
	i.cfg.Close()
	return i.dev.Close()
}

type gousbReadStream struct {
	stream *gousb.ReadStream
}

func (s *gousbReadStream) Read(ctx context.Context) ([]byte, error) {
	buf := make([]byte, constants.MaxPacketSize)
	n, err := s.stream.ReadContext(ctx, buf)
	if err != nil {
		return nil, classifyErr(err)
	}
	return buf[:n], nil
}

func (s *gousbReadStream) Close() error {
	s.stream.Close()
	return nil
}

// classifyErr maps gousb/libusb transfer errors onto the Session error
// taxonomy's sentinels, mirroring original_source/src/host.rs's
// From<nusb::transfer::TransferError> conversion.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.Canceled):
		return ErrTransferCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTransferCancelled
	default:
		return fmt.Errorf("%w: %v", ErrTransferUnknown, err)
	}
}
