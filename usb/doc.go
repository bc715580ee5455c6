// Package usb implements the qdl.Transport over a libusb bulk interface.
//
// Discovery walks every attached device with the EDL vendor/product pair and
// accepts the first one whose descriptors expose exactly one vendor-specific
// interface with one bulk IN and one bulk OUT endpoint:
//
//	dev, err := usb.Discover()
//	if errors.Is(err, qdl.ErrNotFound) {
//	    // device not in EDL mode
//	}
//	defer dev.Close()
//
// Writes are split into chunks of the OUT endpoint's maximum packet size. A
// write that ends exactly on a packet boundary is followed by a zero-length
// packet when the caller asks for end-of-transfer signalling; without it the
// device would keep waiting for the rest of the message.
package usb
