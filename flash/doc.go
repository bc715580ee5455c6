// Package flash runs a complete flashing job against a device in emergency
// download mode.
//
// A job is a loader image and a list of descriptor files. The Flasher
// loads every descriptor before it touches USB, so a bad file never leaves
// a device half flashed. It then uploads the loader over Sahara and
// executes the actions over Firehose on the same device handle.
//
// Basic usage:
//
//	f := flash.New(usb.Opener(),
//	    flash.WithStorage("ufs"),
//	    flash.WithIncludeDir("./images"),
//	)
//	err := f.Flash(ctx, "prog_firehose_ddr.elf", []string{"rawprogram0.xml", "patch0.xml"})
package flash
