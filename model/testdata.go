package model

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// Small fixed model used across package tests. Two classes, a 5x6 image with a
// single bit-plane and two 15-bit filters. The image below hashes to
// 260681 (indices 585, 254) and 260392 (indices 296, 254) under p = 2^21-9.

const (
	TestP       = 1<<21 - 9
	TestEntries = 1024
)

var testBits = []bool{
	true, false, true, false, false, false,
	true, false, false, false, false, true,
	false, false, false, true, false, false,
	false, false, true, true, true, true,
	false, true, false, true, true, true,
}

// TestModel returns the fixture model. Its scores on TestImage are [1, 2].
func TestModel() *Model {
	params := Params{
		NumClasses:       2,
		NumInputs:        30,
		BitsPerInput:     1,
		NumFilterInputs:  15,
		NumFilterEntries: TestEntries,
		NumFilterHashes:  2,
		P:                TestP,
	}

	bloom := make([][][]bool, params.NumClasses)
	for c := range bloom {
		bloom[c] = make([][]bool, 2)
		for f := range bloom[c] {
			bloom[c][f] = make([]bool, TestEntries)
		}
		bloom[c][0][585] = true
		bloom[c][0][254] = true
		bloom[c][1][296] = true
	}
	bloom[1][1][254] = true

	thresholds := make([][][]uint16, 5)
	for i := range thresholds {
		thresholds[i] = make([][]uint16, 6)
		for j := range thresholds[i] {
			thresholds[i][j] = []uint16{Quantize(0.5)}
		}
	}

	order := make([]uint64, params.NumInputBits())
	for i := range order {
		order[i] = uint64(i)
	}

	m, err := New(params, bloom, thresholds, order)
	if err != nil {
		panic(err)
	}
	return m
}

// TestImage returns a 5x6 image whose binarization under TestModel is testBits.
func TestImage() [][]uint8 {
	img := make([][]uint8, 5)
	for i := range img {
		img[i] = make([]uint8, 6)
		for j := range img[i] {
			if testBits[i*6+j] {
				img[i][j] = 200
			} else {
				img[i][j] = 10
			}
		}
	}
	return img
}

// HeaderOnlyPNG returns a grayscale PNG that declares width x height pixels
// but carries no pixel data.
func HeaderOnlyPNG(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(typ string, data []byte) {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		body := append([]byte(typ), data...)
		buf.Write(body)
		_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(body))
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], width)
	binary.BigEndian.PutUint32(ihdr[4:], height)
	ihdr[8] = 8 // bit depth, color type 0 (gray)
	chunk("IHDR", ihdr)
	chunk("IDAT", nil)
	chunk("IEND", nil)
	return buf.Bytes()
}
