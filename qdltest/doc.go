// Package qdltest provides a simulated device in emergency download mode.
//
// A Device implements qdl.Transport for both protocol phases. It first
// acts as the boot ROM: it sends a Sahara hello, requests the loader image
// in chunks and reports completion. It then acts as the loader and answers
// XML commands, consuming raw payloads after program commands.
//
// Reads never block. When the device has nothing to send, Read fails with a
// timeout immediately, which makes protocol stalls visible in tests:
//
//	dev := qdltest.New(qdltest.WithLoaderSize(len(loader)))
//	err := sahara.New(dev).Run(ctx, loader)
package qdltest
