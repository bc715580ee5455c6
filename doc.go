// Package qdl flashes Qualcomm system-on-chips that are in emergency download
// (EDL) mode.
//
// # Overview
//
// A device in EDL mode exposes a single vendor-specific USB interface with
// one bulk IN and one bulk OUT endpoint. Flashing happens in two phases over
// that channel:
//   - Sahara: a binary request/response protocol in which the device pulls a
//     second-stage loader (the "programmer") from the host
//   - Firehose: once the programmer runs, an XML command protocol that
//     programs, patches and provisions on-device storage
//
// This package holds the pieces shared by every layer: the Transport
// contract, the error taxonomy and progress reporting. The layers live in
// sub-packages:
//
//	usb         device discovery and chunked bulk I/O (gousb)
//	sahara      loader upload state machine
//	firehose    XML command engine
//	action      ordered queue of program/patch/provision actions
//	descriptor  rawprogram/patch/provisioning XML loaders
//	flash       end-to-end orchestration
//	qdltest     simulated EDL device for tests
//
// # Basic Usage
//
//	f := flash.New(usb.Opener(),
//	    flash.WithStorage("ufs"),
//	    flash.WithIncludeDir("./images"),
//	)
//	err := f.Flash(ctx, "prog_firehose_ddr.elf",
//	    []string{"rawprogram0.xml", "patch0.xml"})
//
// # Error Handling
//
// Every error is fatal to a run. Callers classify failures with errors.Is and
// errors.As:
//   - ErrNotFound: no EDL device attached
//   - ErrTransport / ErrTimeout: a USB transfer failed or timed out
//   - ErrProtocol: malformed or unexpected Sahara/Firehose record
//   - *ActionFailedError: the device rejected a queued action
//   - ErrConfig: a descriptor or input file is unusable
package qdl
