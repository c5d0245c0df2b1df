// Package audioconv decodes encoded audio (WAV, MP3, Ogg Vorbis, Ogg Opus)
// into mono float32 PCM, with optional linear resampling. The container is
// sniffed from the payload, so callers can hand over whatever a speech API
// returned without trusting its Content-Type.
package audioconv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

// Decode converts data into mono PCM and returns the samples with their
// sample rate. When targetRate > 0 the output is resampled to it.
func Decode(data []byte, targetRate int) ([]float32, int, error) {
	if len(data) < 4 {
		return nil, 0, errors.New("audio payload too short")
	}

	var (
		pcm  []float32
		rate int
		err  error
	)
	switch string(data[:4]) {
	case "RIFF":
		pcm, rate, err = decodeWAV(data)
	case "OggS":
		pcm, rate, err = decodeOggVorbis(data)
		if err != nil {
			pcm, rate, err = decodeOggOpus(data)
			if err != nil {
				err = fmt.Errorf("ogg container is neither Vorbis nor Opus: %w", err)
			}
		}
	default:
		// MP3 has no reliable magic once ID3 tags enter the picture; let the
		// decoder decide.
		pcm, rate, err = decodeMP3(data)
	}
	if err != nil {
		return nil, 0, err
	}

	if targetRate > 0 && rate != targetRate {
		pcm = Resample(pcm, rate, targetRate)
		rate = targetRate
	}
	return pcm, rate, nil
}

func decodeWAV(data []byte) ([]float32, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if pb == nil || pb.Data == nil {
		return nil, 0, errors.New("empty wav")
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	x := intSliceToFloat32(pb.Data, bd)

	ch, rate := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			rate = pb.Format.SampleRate
		}
	}
	return downmix(x, ch), rate, nil
}

func decodeMP3(data []byte) ([]float32, int, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, 0, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, 0, err
	}
	// The decoder always emits interleaved stereo.
	x := downmix(int16SliceToFloat32(ints), 2)

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}
	return x, rate, nil
}

func decodeOggVorbis(data []byte) ([]float32, int, error) {
	pcm, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, 0, errors.New("invalid ogg/vorbis stream")
	}
	return downmix(pcm, format.Channels), format.SampleRate, nil
}

func decodeOggOpus(data []byte) ([]float32, int, error) {
	dec, err := popus.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	// Opus always decodes at 48 kHz.
	var (
		pcm48 []float32
		buf   = make([]int16, 48_000*ch/2)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm48 = append(pcm48, int16SliceToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}
	if len(pcm48) == 0 {
		return nil, 0, errors.New("empty opus stream")
	}
	return downmix(pcm48, ch), 48000, nil
}

// Resample converts in from inSR to outSR by linear interpolation.
func Resample(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	for i := 0; i < outN; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		if i0 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		if i1 >= len(in) {
			out[i] = in[i0]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i1]*a
	}
	return out
}

// downmix averages interleaved channels into mono.
func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	nFrames := len(in) / channels
	out := make([]float32, nFrames)
	for i := 0; i < nFrames; i++ {
		sum := 0.0
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func intSliceToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)*scale, -1.0, 1.0))
	}
	return out
}

func int16SliceToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
