// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package driver defines a back-end-neutral set of interfaces for the
// persistent GPU resources and copy commands that the terrain core
// needs (buffers, images, image views, and transfer-only command
// buffers). It deliberately excludes render/compute pipeline state:
// the core never issues a draw call itself, it only emits data for a
// host render graph to consume.
// It is designed to allow platform-specific APIs to be
// implemented in a mostly straightforward manner.
package driver

// Driver identifies the back end that opened a GPU, so a caller that
// juggles more than one (e.g. a headless compute driver alongside a
// display-capable one) can tell them apart.
type Driver interface {
	// Name returns the name of the driver.
	Name() string
}
