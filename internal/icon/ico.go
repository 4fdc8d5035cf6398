package icon

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
)

const (
	icoHeaderSize = 6
	icoEntrySize  = 16
	icoTypeIcon   = 1
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// icoDir is the ICONDIR header.
type icoDir struct {
	Reserved uint16
	Type     uint16
	Count    uint16
}

// icoEntry is one ICONDIRENTRY. Width and Height 0 mean 256 or more.
type icoEntry struct {
	Width    uint8
	Height   uint8
	Colors   uint8
	Reserved uint8
	Planes   uint16
	BitCount uint16
	Size     uint32
	Offset   uint32
}

// Frame describes one image embedded in an icon container.
type Frame struct {
	Width    int
	Height   int
	BitCount int
	PNG      bool
	Bytes    int
}

// writeICO serializes frames as a PNG-compressed ICO container.
func writeICO(w io.Writer, frames []image.Image) error {
	if len(frames) == 0 {
		return errors.New("ico: no frames")
	}
	if len(frames) > 0xFFFF {
		return fmt.Errorf("ico: %d frames exceeds container limit", len(frames))
	}

	payloads := make([][]byte, len(frames))
	for i, img := range frames {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
			return fmt.Errorf("ico: encode frame %d: %w", i, err)
		}
		payloads[i] = buf.Bytes()
	}

	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.LittleEndian, icoDir{Type: icoTypeIcon, Count: uint16(len(frames))}); err != nil {
		return err
	}

	offset := uint32(icoHeaderSize + icoEntrySize*len(frames))
	for i, img := range frames {
		b := img.Bounds()
		entry := icoEntry{
			Width:    dimByte(b.Dx()),
			Height:   dimByte(b.Dy()),
			Planes:   1,
			BitCount: 32,
			Size:     uint32(len(payloads[i])),
			Offset:   offset,
		}
		if err := binary.Write(bw, binary.LittleEndian, entry); err != nil {
			return err
		}
		offset += entry.Size
	}

	for _, p := range payloads {
		if _, err := bw.Write(p); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func dimByte(n int) uint8 {
	if n >= 256 {
		return 0
	}
	return uint8(n)
}

// ReadFrames parses the directory of an ICO file. For PNG payloads the real
// dimensions come from the PNG header, so frames above 256 report their size.
func ReadFrames(path string) ([]Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFrames(data)
}

// ReadFrameSizes returns the edge length of every frame in an ICO file.
func ReadFrameSizes(path string) ([]int, error) {
	frames, err := ReadFrames(path)
	if err != nil {
		return nil, err
	}
	sizes := make([]int, len(frames))
	for i, f := range frames {
		sizes[i] = f.Width
	}
	return sizes, nil
}

func parseFrames(data []byte) ([]Frame, error) {
	r := bytes.NewReader(data)

	var dir icoDir
	if err := binary.Read(r, binary.LittleEndian, &dir); err != nil {
		return nil, fmt.Errorf("ico: read header: %w", err)
	}
	if dir.Reserved != 0 || dir.Type != icoTypeIcon {
		return nil, fmt.Errorf("ico: not an icon file (type %d)", dir.Type)
	}

	entries := make([]icoEntry, dir.Count)
	if err := binary.Read(r, binary.LittleEndian, entries); err != nil {
		return nil, fmt.Errorf("ico: read directory: %w", err)
	}

	frames := make([]Frame, 0, len(entries))
	for i, e := range entries {
		end := uint64(e.Offset) + uint64(e.Size)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("ico: frame %d overruns file", i)
		}
		payload := data[e.Offset:end]

		f := Frame{
			Width:    entryDim(e.Width),
			Height:   entryDim(e.Height),
			BitCount: int(e.BitCount),
			Bytes:    int(e.Size),
		}
		if bytes.HasPrefix(payload, pngSignature) {
			f.PNG = true
			cfg, err := png.DecodeConfig(bytes.NewReader(payload))
			if err != nil {
				return nil, fmt.Errorf("ico: frame %d: %w", i, err)
			}
			f.Width, f.Height = cfg.Width, cfg.Height
		}
		frames = append(frames, f)
	}

	return frames, nil
}

// DecodeFrame decodes the PNG payload of frame i.
func DecodeFrame(path string, i int) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)

	var dir icoDir
	if err := binary.Read(r, binary.LittleEndian, &dir); err != nil {
		return nil, err
	}
	if i < 0 || i >= int(dir.Count) {
		return nil, fmt.Errorf("ico: frame %d out of range (%d frames)", i, dir.Count)
	}
	entries := make([]icoEntry, dir.Count)
	if err := binary.Read(r, binary.LittleEndian, entries); err != nil {
		return nil, err
	}
	e := entries[i]
	end := uint64(e.Offset) + uint64(e.Size)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("ico: frame %d overruns file", i)
	}
	return png.Decode(bytes.NewReader(data[e.Offset:end]))
}

func entryDim(b uint8) int {
	if b == 0 {
		return 256
	}
	return int(b)
}
