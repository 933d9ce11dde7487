package decoder

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Histogram is a fixed-width one dimensional histogram over [Min, Max).
type Histogram struct {
	Bins      int
	Min       float64
	Max       float64
	Counts    []uint32
	Underflow uint32
	Overflow  uint32
}

func NewHistogram(bins int, min, max float64) *Histogram {
	return &Histogram{
		Bins:   bins,
		Min:    min,
		Max:    max,
		Counts: make([]uint32, bins),
	}
}

func (h *Histogram) bin(x float64) (int, bool) {
	if x < h.Min {
		h.Underflow++
		return 0, false
	}
	if x >= h.Max {
		h.Overflow++
		return 0, false
	}
	bin := int((x - h.Min) / (h.Max - h.Min) * float64(h.Bins))
	if bin >= h.Bins {
		bin = h.Bins - 1
	}
	return bin, true
}

func (h *Histogram) Fill(x float64) {
	if bin, ok := h.bin(x); ok {
		h.Counts[bin]++
	}
}

func (h *Histogram) Entries() uint64 {
	total := uint64(h.Underflow) + uint64(h.Overflow)
	for _, c := range h.Counts {
		total += uint64(c)
	}
	return total
}

func (h *Histogram) Add(o *Histogram) error {
	if h.Bins != o.Bins || h.Min != o.Min || h.Max != o.Max {
		return fmt.Errorf("incompatible histograms: %d bins [%g, %g) and %d bins [%g, %g)",
			h.Bins, h.Min, h.Max, o.Bins, o.Min, o.Max)
	}
	for i, c := range o.Counts {
		h.Counts[i] += c
	}
	h.Underflow += o.Underflow
	h.Overflow += o.Overflow
	return nil
}

// Matrix is a square coincidence matrix filled symmetrically.
type Matrix struct {
	Bins   int
	Min    float64
	Max    float64
	Counts []uint32 // row major
}

func NewMatrix(bins int, min, max float64) *Matrix {
	return &Matrix{
		Bins:   bins,
		Min:    min,
		Max:    max,
		Counts: make([]uint32, bins*bins),
	}
}

func (m *Matrix) bin(x float64) (int, bool) {
	if x < m.Min || x >= m.Max {
		return 0, false
	}
	bin := int((x - m.Min) / (m.Max - m.Min) * float64(m.Bins))
	if bin >= m.Bins {
		bin = m.Bins - 1
	}
	return bin, true
}

func (m *Matrix) At(x, y int) uint32 {
	return m.Counts[x*m.Bins+y]
}

// FillEvent fills every unordered pair of positive energies in both
// orientations.
func (m *Matrix) FillEvent(energies []float64) {
	for i := 0; i < len(energies); i++ {
		if energies[i] <= 0 {
			continue
		}
		bi, ok := m.bin(energies[i])
		if !ok {
			continue
		}
		for j := i + 1; j < len(energies); j++ {
			if energies[j] <= 0 {
				continue
			}
			bj, ok := m.bin(energies[j])
			if !ok {
				continue
			}
			m.Counts[bi*m.Bins+bj]++
			m.Counts[bj*m.Bins+bi]++
		}
	}
}

func (m *Matrix) Add(o *Matrix) error {
	if m.Bins != o.Bins || m.Min != o.Min || m.Max != o.Max {
		return fmt.Errorf("incompatible matrices: %d and %d bins", m.Bins, o.Bins)
	}
	for i, c := range o.Counts {
		m.Counts[i] += c
	}
	return nil
}

// HistogramSet holds one energy histogram per channel plus the coincidence
// matrix of a file.
type HistogramSet struct {
	Channels map[uint16]*Histogram
	Matrix   *Matrix
	bins     int
	max      float64
}

func NewHistogramSet(bins int, max float64, matrixBins int) *HistogramSet {
	return &HistogramSet{
		Channels: make(map[uint16]*Histogram),
		Matrix:   NewMatrix(matrixBins, 0, max),
		bins:     bins,
		max:      max,
	}
}

// FillEvent fills the channel histograms and the matrix with the energies of
// the event hits. Negative energies belong to uncalibrated channels and are
// skipped.
func (s *HistogramSet) FillEvent(event *Event, energies []float64) {
	for i, hit := range event.Hits {
		if energies[i] < 0 {
			continue
		}
		h, ok := s.Channels[hit.ID]
		if !ok {
			h = NewHistogram(s.bins, 0, s.max)
			s.Channels[hit.ID] = h
		}
		h.Fill(energies[i])
	}
	s.Matrix.FillEvent(energies)
}

func (s *HistogramSet) Merge(o *HistogramSet) error {
	for channel, h := range o.Channels {
		mine, ok := s.Channels[channel]
		if !ok {
			mine = NewHistogram(h.Bins, h.Min, h.Max)
			s.Channels[channel] = mine
		}
		if err := mine.Add(h); err != nil {
			return fmt.Errorf("channel %d: %w", channel, err)
		}
	}
	return s.Matrix.Add(o.Matrix)
}

// ChannelIDs returns the channels with a histogram in ascending order.
func (s *HistogramSet) ChannelIDs() []uint16 {
	ids := make([]uint16, 0, len(s.Channels))
	for id := range s.Channels {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
