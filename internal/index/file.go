// Package index implements the binary index codec: the
// self-describing file format binding build parameters to an ordered
// set of per-track log-spectrogram segments.
//
// The format has no magic number and no version field, so the build and
// search binaries must be changed together whenever the layout changes.
package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"unicode/utf8"
)

// Sentinel error kinds.
var (
	ErrIndexTruncated = errors.New("index: truncated while reading")
	ErrUtf8           = errors.New("index: title is not valid utf-8")
)

// BuildSettings are the seven u32 parameters fully describing the
// transform that produced an index.
type BuildSettings struct {
	FFTSize                 uint32
	FFTOverlap              uint32
	SpectrogramHeight       uint32
	SpectrogramMaxFrequency uint32
	ResampleRate            uint32
	ResampleChunkSize       uint32
	ResampleSubChunks       uint32
}

// Segment is one track's title and its ordered sequence of LogColumns,
// flattened to float32 vectors of length BuildSettings.SpectrogramHeight.
type Segment struct {
	Title   string
	Vectors [][]float32
}

// File is the full in-memory representation of an index: build
// parameters plus an ordered sequence of segments.
type File struct {
	BuildSettings BuildSettings
	Segments      []Segment
}

// SortSegments orders segments ascending by Title, Unicode code-point
// order, stable under ties.
func (f *File) SortSegments() {
	sort.SliceStable(f.Segments, func(i, j int) bool {
		return f.Segments[i].Title < f.Segments[j].Title
	})
}

// WriteTo serializes f to w: all integers little-endian, no magic
// number, no checksum.
func (f *File) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)

	settings := []uint32{
		f.BuildSettings.FFTSize,
		f.BuildSettings.FFTOverlap,
		f.BuildSettings.SpectrogramHeight,
		f.BuildSettings.SpectrogramMaxFrequency,
		f.BuildSettings.ResampleRate,
		f.BuildSettings.ResampleChunkSize,
		f.BuildSettings.ResampleSubChunks,
	}
	for _, v := range settings {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("index: writing build settings: %w", err)
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(f.Segments))); err != nil {
		return fmt.Errorf("index: writing segment count: %w", err)
	}

	for _, seg := range f.Segments {
		if err := writeSegment(bw, seg); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeSegment(w io.Writer, seg Segment) error {
	titleBytes := []byte(seg.Title)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(titleBytes))); err != nil {
		return fmt.Errorf("index: writing title length: %w", err)
	}
	if _, err := w.Write(titleBytes); err != nil {
		return fmt.Errorf("index: writing title: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(seg.Vectors))); err != nil {
		return fmt.Errorf("index: writing vector count: %w", err)
	}
	for _, vec := range seg.Vectors {
		for _, v := range vec {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return fmt.Errorf("index: writing vector value: %w", err)
			}
		}
	}
	return nil
}

// WriteFile writes f to a new file at path, truncating any existing
// file.
func (f *File) WriteFile(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("index: creating output file: %w", err)
	}
	defer out.Close()

	if err := f.WriteTo(out); err != nil {
		return err
	}
	return out.Close()
}

// ReadFrom parses a File from r. Truncation is reported as
// ErrIndexTruncated; an invalid UTF-8 title as ErrUtf8.
func ReadFrom(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)

	settings, err := readSettings(br)
	if err != nil {
		return nil, err
	}

	segmentCount, err := readU32(br)
	if err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, segmentCount)
	for i := uint32(0); i < segmentCount; i++ {
		seg, err := readSegment(br, settings.SpectrogramHeight)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}

	return &File{BuildSettings: settings, Segments: segments}, nil
}

// ReadFile reads and parses the index at path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("index: opening index file: %w", err)
	}
	defer f.Close()
	return ReadFrom(f)
}

func readSettings(r io.Reader) (BuildSettings, error) {
	var s BuildSettings
	fields := []*uint32{
		&s.FFTSize, &s.FFTOverlap, &s.SpectrogramHeight, &s.SpectrogramMaxFrequency,
		&s.ResampleRate, &s.ResampleChunkSize, &s.ResampleSubChunks,
	}
	for _, f := range fields {
		v, err := readU32(r)
		if err != nil {
			return BuildSettings{}, err
		}
		*f = v
	}
	return s, nil
}

func readSegment(r io.Reader, height uint32) (Segment, error) {
	titleLen, err := readU32(r)
	if err != nil {
		return Segment{}, err
	}

	titleBytes := make([]byte, titleLen)
	if _, err := io.ReadFull(r, titleBytes); err != nil {
		return Segment{}, wrapTruncation(err)
	}
	if !utf8.Valid(titleBytes) {
		return Segment{}, ErrUtf8
	}

	vectorCount, err := readU32(r)
	if err != nil {
		return Segment{}, err
	}

	vectors := make([][]float32, vectorCount)
	for i := uint32(0); i < vectorCount; i++ {
		vec := make([]float32, height)
		for j := uint32(0); j < height; j++ {
			v, err := readF32(r)
			if err != nil {
				return Segment{}, err
			}
			vec[j] = v
		}
		vectors[i] = vec
	}

	return Segment{Title: string(titleBytes), Vectors: vectors}, nil
}

func readU32(r io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, wrapTruncation(err)
	}
	return v, nil
}

func readF32(r io.Reader) (float32, error) {
	var v float32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, wrapTruncation(err)
	}
	return v, nil
}

func wrapTruncation(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrIndexTruncated
	}
	return fmt.Errorf("index: %w", err)
}
