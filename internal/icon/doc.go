/*
Package icon encodes source images into multi-resolution ICO files.

Every icon is built from one padded square canvas: the source is decoded
(SVGs through a Rasterizer), optionally autocropped to its visible pixels,
optionally flattened onto black, centered on a square whose edge makes the
artwork fill the padding ratio, and resized once to the largest requested size.
All smaller frames are resampled from that single base so no frame is ever
derived from a smaller one.

	enc := icon.NewEncoder(icon.SVGRasterizer{})
	res := enc.Encode(ctx, "Icon Images/cat.png", "Icon Images/Icons", icon.PresetSizes("16–256"), icon.DefaultOptions())
	if !res.OK() {
	    log.Print(res.Message)
	}

Frames are stored as PNG payloads. The output is written to a temporary file
and renamed, so a failed or cancelled encode never leaves a torn icon behind.
*/
package icon
