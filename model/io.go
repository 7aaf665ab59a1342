package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"filippo.io/age"
)

// bundle is the on-disk model format. Thresholds are stored normalized to [0, 1].
type bundle struct {
	Params
	BloomFilters [][][]bool   `json:"bloom_filters"`
	Thresholds   [][][]float32 `json:"binarization_thresholds"`
	InputOrder   []uint64     `json:"input_order"`
}

// Load reads a JSON model bundle from path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a JSON model bundle and quantizes its thresholds.
func Parse(data []byte) (*Model, error) {
	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return New(b.Params, b.BloomFilters, QuantizeThresholds(b.Thresholds), b.InputOrder)
}

func QuantizeThresholds(ts [][][]float32) [][][]uint16 {
	res := make([][][]uint16, len(ts))
	for i, row := range ts {
		res[i] = make([][]uint16, len(row))
		for j, px := range row {
			res[i][j] = make([]uint16, len(px))
			for b, t := range px {
				res[i][j][b] = Quantize(t)
			}
		}
	}
	return res
}

// LoadImage reads a PNG from path and returns its first channel as rows of
// intensities. When identities are given the file is age-decrypted first.
func (m *Model) LoadImage(path string, identities ...age.Identity) ([][]uint8, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return m.DecodeImage(f, identities...)
}

// DecodeImage decodes an image of exactly the model's input shape. The header
// is checked before any pixel buffer is allocated.
func (m *Model) DecodeImage(r io.Reader, identities ...age.Identity) ([][]uint8, error) {
	if len(identities) > 0 {
		plain, err := age.Decrypt(r, identities...)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt image: %w", err)
		}
		r = plain
	}

	var header bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Height != m.Rows() || cfg.Width != m.Cols() {
		return nil, fmt.Errorf("%w: image is %dx%d, expected %d rows of %d columns",
			ErrInvalidModel, cfg.Width, cfg.Height, m.Rows(), m.Cols())
	}

	img, _, err := image.Decode(io.MultiReader(&header, r))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	res := make([][]uint8, bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := make([]uint8, bounds.Dx())
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// non-premultiplied, so translucent pixels keep their stored value
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			row[x-bounds.Min.X] = c.R
		}
		res[y-bounds.Min.Y] = row
	}
	return res, nil
}

// EncryptImage age-encrypts src to the given recipients.
func EncryptImage(dst io.Writer, src io.Reader, recipients ...age.Recipient) error {
	w, err := age.Encrypt(dst, recipients...)
	if err != nil {
		return err
	}
	if _, err = io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

// ParseLabel extracts the class label from file names like "img_17_3.png",
// where the last underscore separated field is the label.
func ParseLabel(path string) (int, bool) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx := strings.LastIndexByte(name, '_')
	if idx < 0 {
		return 0, false
	}
	label, err := strconv.Atoi(name[idx+1:])
	if err != nil || label < 0 {
		return 0, false
	}
	return label, true
}

// Marshal encodes m as a bundle, mapping thresholds back to [0, 1].
func Marshal(m *Model) ([]byte, error) {
	b := bundle{
		Params:       m.Params,
		BloomFilters: m.BloomFilters,
		Thresholds:   make([][][]float32, len(m.Thresholds)),
		InputOrder:   m.InputOrder,
	}
	for i, row := range m.Thresholds {
		b.Thresholds[i] = make([][]float32, len(row))
		for j, px := range row {
			b.Thresholds[i][j] = make([]float32, len(px))
			for k, t := range px {
				b.Thresholds[i][j][k] = dequantize(t)
			}
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// dequantize picks the midpoint below t so that Quantize maps it back to t.
func dequantize(t uint16) float32 {
	if t == 0 {
		return 0
	}
	return (float32(t) - 0.5) / 255
}
