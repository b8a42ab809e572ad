// Package raster isolates every interaction with the image-processing
// backend behind the [Backend] interface.
//
// A backend answers three questions about a file on disk: how large it is,
// how to stretch it to an exact size, and how to shear it vertically with a
// transparent fill. Both resize and shear mutate the file in place.
//
// # Backends
//
//   - [GraphicsMagick] runs the external gm executable. Arguments are passed
//     as an argv slice, never through a shell, and any output on stderr is
//     treated as failure even when gm exits zero.
//   - [Native] performs the same operations in-process with
//     github.com/disintegration/imaging and golang.org/x/image/draw.
//
// Failures carry BACKEND_EXECUTION or BACKEND_PARSE codes from pkg/errors.
//
// # Usage
//
//	b, err := raster.New(raster.BackendGM, raster.Config{Logger: logger})
//	dims, err := b.Dimensions(ctx, "/tmp/tile.png")
//	err = raster.Transform(ctx, b, "/tmp/out/tile.png", geometry.NewPlan(dims.Width, dims.Height))
package raster
