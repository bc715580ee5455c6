// Package firehose implements the host side of the XML command protocol
// spoken by the second-stage loader.
//
// Every command is one XML document with a single element inside <data>:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<data><program SECTOR_SIZE_IN_BYTES="4096" ...></program></data>
//
// The device answers with a stream of <data> documents holding any number
// of <log value="..."/> records followed by exactly one terminal
// <response value="ACK|NAK"/>. When an ACK carries rawmode="true" the host
// sends a raw sector payload next and then waits for a second response.
//
// The Engine sends one command at a time and never retries: a NAK aborts
// the run.
//
// Basic usage:
//
//	eng := firehose.New(dev, firehose.WithStorage("ufs"))
//	if err := eng.Run(ctx, store); err != nil {
//	    log.Fatal(err)
//	}
package firehose
