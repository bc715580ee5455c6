package usb

import (
	"sort"

	"github.com/google/gousb"
	"github.com/pkg/errors"
)

// EDL identity and interface signature.
const (
	// VendorID is the Qualcomm USB vendor ID
	VendorID gousb.ID = 0x05c6

	// ProductID is the product ID of the QDLoader 9008 (EDL) interface
	ProductID gousb.ID = 0x9008

	// ProtocolGeneric is the vendor-specific interface protocol value
	ProtocolGeneric gousb.Protocol = 0xff

	// ProtocolEDL is the interface protocol value used by newer boot ROMs
	ProtocolEDL gousb.Protocol = 0x10
)

// Selection identifies the interface and endpoints chosen on a device.
type Selection struct {
	Config    int
	Interface int
	Alternate int

	InEndpoint     int
	InMaxPacket    int
	OutEndpoint    int
	OutMaxPacket   int
	InterfaceProto gousb.Protocol
}

// SelectInterface applies the EDL acceptance rule to a device descriptor
// tree. The device must expose exactly one vendor-specific interface
// (class and subclass 0xff, protocol 0xff or 0x10), and that interface must
// carry exactly one bulk IN and one bulk OUT endpoint.
func SelectInterface(desc *gousb.DeviceDesc) (Selection, error) {
	if desc == nil {
		return Selection{}, errors.New("nil device descriptor")
	}

	var (
		found []Selection
		errs  []error
	)

	cfgNums := make([]int, 0, len(desc.Configs))
	for n := range desc.Configs {
		cfgNums = append(cfgNums, n)
	}
	sort.Ints(cfgNums)

	for _, n := range cfgNums {
		cfg := desc.Configs[n]
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if !isVendorInterface(alt) {
					continue
				}
				sel, err := selectEndpoints(alt)
				if err != nil {
					errs = append(errs, errors.Wrapf(err, "config %d interface %d.%d", cfg.Number, alt.Number, alt.Alternate))
					continue
				}
				sel.Config = cfg.Number
				found = append(found, sel)
			}
		}
	}

	switch {
	case len(found) == 1 && len(errs) == 0:
		return found[0], nil
	case len(found)+len(errs) > 1:
		return Selection{}, errors.Errorf("%d vendor-specific interfaces, want exactly one", len(found)+len(errs))
	case len(errs) == 1:
		return Selection{}, errs[0]
	default:
		return Selection{}, errors.New("no vendor-specific interface")
	}
}

func isVendorInterface(s gousb.InterfaceSetting) bool {
	if s.Class != gousb.ClassVendorSpec || s.SubClass != gousb.ClassVendorSpec {
		return false
	}
	return s.Protocol == ProtocolGeneric || s.Protocol == ProtocolEDL
}

func selectEndpoints(s gousb.InterfaceSetting) (Selection, error) {
	sel := Selection{
		Interface:      s.Number,
		Alternate:      s.Alternate,
		InterfaceProto: s.Protocol,
	}

	var in, out int
	for _, ep := range s.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.MaxPacketSize <= 0 {
			return Selection{}, errors.Errorf("endpoint %d has max packet size %d", ep.Number, ep.MaxPacketSize)
		}
		if ep.Direction == gousb.EndpointDirectionIn {
			in++
			sel.InEndpoint = ep.Number
			sel.InMaxPacket = ep.MaxPacketSize
		} else {
			out++
			sel.OutEndpoint = ep.Number
			sel.OutMaxPacket = ep.MaxPacketSize
		}
	}

	if in != 1 || out != 1 {
		return Selection{}, errors.Errorf("%d bulk IN and %d bulk OUT endpoints, want one of each", in, out)
	}
	return sel, nil
}
