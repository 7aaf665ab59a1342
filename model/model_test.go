package model

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantize(t *testing.T) {
	assert.Equal(t, uint16(0), Quantize(0))
	assert.Equal(t, uint16(0), Quantize(-0.25))
	assert.Equal(t, uint16(128), Quantize(0.5))
	assert.Equal(t, uint16(255), Quantize(1))
	assert.Equal(t, uint16(MaxThreshold), Quantize(1.5))
}

func TestPredict(t *testing.T) {
	m := TestModel()
	img := TestImage()

	bits, err := m.Binarize(img)
	require.NoError(t, err)
	require.Equal(t, testBits, bits)

	joint := m.JointInputs(bits)
	require.Equal(t, []uint64{2117, 30177}, joint)

	y, idx := m.Hash(2117)
	assert.Equal(t, int64(260681), y.Int64())
	assert.Equal(t, []uint64{585, 254}, idx)
	y, idx = m.Hash(30177)
	assert.Equal(t, int64(260392), y.Int64())
	assert.Equal(t, []uint64{296, 254}, idx)

	scores, err := m.Predict(img)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, scores)
}

func TestPredictWrongShape(t *testing.T) {
	m := TestModel()
	img := TestImage()[:4]
	_, err := m.Predict(img)
	require.ErrorIs(t, err, ErrInvalidModel)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(m *Model){
		"entries not power of two": func(m *Model) { m.NumFilterEntries = 1000 },
		"filter inputs do not divide": func(m *Model) { m.NumFilterInputs = 7 },
		"hash bits below p": func(m *Model) { m.HashBits = 20 },
		"too many hashes": func(m *Model) { m.NumFilterHashes = 3 },
		"missing class": func(m *Model) { m.BloomFilters = m.BloomFilters[:1] },
		"short filter": func(m *Model) { m.BloomFilters[1][0] = m.BloomFilters[1][0][:512] },
		"threshold too large": func(m *Model) { m.Thresholds[2][3][0] = MaxThreshold + 1 },
		"ragged thresholds": func(m *Model) { m.Thresholds[1] = m.Thresholds[1][:5] },
		"repeated order": func(m *Model) { m.InputOrder[3] = 4 },
		"order out of range": func(m *Model) { m.InputOrder[0] = 30 },
		"zero p": func(m *Model) { m.P = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			m := TestModel()
			mutate(m)
			require.ErrorIs(t, m.Validate(), ErrInvalidModel)
		})
	}

	require.NoError(t, TestModel().Validate())
}

func TestMarshalParse(t *testing.T) {
	m := TestModel()
	data, err := Marshal(m)
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, m, parsed)

	d1, err := m.Digest()
	require.NoError(t, err)
	d2, err := parsed.Digest()
	require.NoError(t, err)
	require.Equal(t, d1, d2)

	parsed.BloomFilters[0][0][1] = true
	d3, err := parsed.Digest()
	require.NoError(t, err)
	require.NotEqual(t, d1, d3)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("{"))
	require.ErrorIs(t, err, ErrInvalidModel)
}

func TestEncryptedImage(t *testing.T) {
	src := TestImage()
	img := image.NewGray(image.Rect(0, 0, 6, 5))
	for i, row := range src {
		for j, px := range row {
			img.SetGray(j, i, color.Gray{Y: px})
		}
	}
	var plain bytes.Buffer
	require.NoError(t, png.Encode(&plain, img))

	m := TestModel()
	decoded, err := m.DecodeImage(bytes.NewReader(plain.Bytes()))
	require.NoError(t, err)
	require.Equal(t, src, decoded)

	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	var sealed bytes.Buffer
	require.NoError(t, EncryptImage(&sealed, bytes.NewReader(plain.Bytes()), identity.Recipient()))

	decoded, err = m.DecodeImage(bytes.NewReader(sealed.Bytes()), identity)
	require.NoError(t, err)
	require.Equal(t, src, decoded)

	other, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	_, err = m.DecodeImage(bytes.NewReader(sealed.Bytes()), other)
	require.Error(t, err)
}

func TestDecodeImageChecksShape(t *testing.T) {
	m := TestModel()

	// rejected from the header alone
	_, err := m.DecodeImage(bytes.NewReader(HeaderOnlyPNG(20000, 20000)))
	require.ErrorIs(t, err, ErrInvalidModel)

	// transposed
	var plain bytes.Buffer
	require.NoError(t, png.Encode(&plain, image.NewGray(image.Rect(0, 0, 5, 6))))
	_, err = m.DecodeImage(bytes.NewReader(plain.Bytes()))
	require.ErrorIs(t, err, ErrInvalidModel)

	// right shape, no pixel data
	_, err = m.DecodeImage(bytes.NewReader(HeaderOnlyPNG(6, 5)))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidModel)
}

func TestDecodeImageIgnoresAlpha(t *testing.T) {
	m := TestModel()
	img := image.NewNRGBA(image.Rect(0, 0, 6, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 10, B: 20, A: 128})
		}
	}
	var plain bytes.Buffer
	require.NoError(t, png.Encode(&plain, img))

	decoded, err := m.DecodeImage(bytes.NewReader(plain.Bytes()))
	require.NoError(t, err)
	for _, row := range decoded {
		for _, px := range row {
			require.Equal(t, uint8(200), px)
		}
	}
}

func TestParseLabel(t *testing.T) {
	label, ok := ParseLabel("data/test/img_123_7.png")
	require.True(t, ok)
	require.Equal(t, 7, label)

	_, ok = ParseLabel("data/test/image.png")
	require.False(t, ok)
	_, ok = ParseLabel("img_x.png")
	require.False(t, ok)
}
