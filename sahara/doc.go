// Package sahara implements the host side of the Qualcomm Sahara protocol,
// used by a device in emergency download mode to pull its second-stage
// loader.
//
// # Protocol Overview
//
// Every record starts with two little-endian uint32 values, the command and
// the total record length:
//
//	[CMD][LEN][FIELDS...]
//
// A session runs as follows:
//
//	device  HELLO(mode)                  ->
//	        <- HELLO_RESP(mode)             host
//	device  READ_DATA(offset, length)    ->
//	        <- image[offset:offset+length]  host
//	        ... repeated, device-paced ...
//	device  END_OF_IMAGE(status)         ->
//	        <- DONE                         host
//	device  DONE_RESP(status)            ->
//
// After a successful DONE_RESP the device jumps into the uploaded loader and
// the bulk channel belongs to the Firehose protocol.
//
// # Record Builders and Parsers
//
// The Build* functions create records and the Parse* functions validate
// them. Both directions are provided so device simulators can share them:
//
//	rec := sahara.BuildHelloResp(hello.Mode)
//	req, err := sahara.ParseReadData(rec)
//
// # Engine
//
// Engine is a reactive state machine over a qdl.Transport:
//
//	eng := sahara.New(dev, sahara.WithReadTimeout(time.Second))
//	if err := eng.Run(ctx, image); err != nil {
//	    // eng.State() == sahara.StateAborted
//	}
//
// Any malformed record, out-of-range read request, unsupported mode or
// failure status aborts the session. Nothing is retried.
package sahara
