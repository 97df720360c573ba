package sample

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
	"github.com/pkg/errors"
	wav "github.com/youpy/go-wav"
)

// Format identifies the encoding of a raw audio asset.
type Format int

const (
	// FormatWAV is RIFF/WAVE PCM.
	FormatWAV Format = iota
	// FormatMP3 is MPEG-1 layer 3.
	FormatMP3
	// FormatFLAC is free lossless audio codec.
	FormatFLAC
)

// Load decodes an audio asset into an immutable Store. It is never called on
// the audio thread; all allocation happens here, once, at plugin load time.
func Load(r io.Reader, format Format) (*Store, error) {
	switch format {
	case FormatWAV:
		return decodeWAV(r)
	case FormatMP3:
		return decodeMP3(r)
	case FormatFLAC:
		return decodeFLAC(r)
	default:
		return nil, &DecodeError{Reason: "unknown format"}
	}
}

// LoadFile decodes an audio file, picking the codec from the file extension.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open sample file")
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	case ".flac":
		return decodeFLAC(f)
	default:
		return nil, &DecodeError{Reason: "unrecognized file extension " + filepath.Ext(path)}
	}
}

// LoadPCM16 decodes headerless little-endian 16-bit PCM with an explicit
// layout, for hosts that hand the asset over pre-stripped.
func LoadPCM16(r io.Reader, sampleRate, channels int) (*Store, error) {
	if channels < 1 {
		return nil, &DecodeError{Reason: "channel count must be positive"}
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Reason: "reading pcm data", Err: err}
	}
	numSamples := len(raw) / 2
	numFrames := numSamples / channels
	frames := make([][]float32, channels)
	for ch := range frames {
		frames[ch] = make([]float32, numFrames)
	}
	for i := 0; i < numFrames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := int16(binary.LittleEndian.Uint16(raw[(i*channels+ch)*2:]))
			frames[ch][i] = float32(v) / 32768.0
		}
	}
	return newStore(sampleRate, channels, frames)
}

func decodeWAV(r io.Reader) (*Store, error) {
	// wav.NewReader needs a riff.RIFFReader (io.Reader + io.ReaderAt).
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Reason: "reading wav data", Err: err}
	}
	reader := wav.NewReader(bytes.NewReader(data))
	format, err := reader.Format()
	if err != nil {
		return nil, &DecodeError{Reason: "reading wav header", Err: err}
	}
	channels := int(format.NumChannels)
	if channels < 1 || channels > 2 {
		return nil, &DecodeError{Reason: "wav must be mono or stereo"}
	}

	frames := make([][]float32, channels)
	for {
		samples, err := reader.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Reason: "reading wav samples", Err: err}
		}
		for _, s := range samples {
			for ch := 0; ch < channels; ch++ {
				frames[ch] = append(frames[ch], float32(reader.FloatValue(s, uint(ch))))
			}
		}
	}
	return newStore(int(format.SampleRate), channels, frames)
}

func decodeMP3(r io.Reader) (*Store, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, &DecodeError{Reason: "reading mp3 stream", Err: err}
	}

	// go-mp3 always emits interleaved stereo 16-bit little-endian PCM.
	frames := [][]float32{nil, nil}
	buf := make([]byte, 4096)
	for {
		n, err := dec.Read(buf)
		for i := 0; i+3 < n; i += 4 {
			l := int16(binary.LittleEndian.Uint16(buf[i:]))
			rr := int16(binary.LittleEndian.Uint16(buf[i+2:]))
			frames[0] = append(frames[0], float32(l)/32768.0)
			frames[1] = append(frames[1], float32(rr)/32768.0)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Reason: "decoding mp3 frames", Err: err}
		}
	}
	return newStore(dec.SampleRate(), 2, frames)
}

func decodeFLAC(r io.Reader) (*Store, error) {
	stream, err := flac.Parse(r)
	if err != nil {
		return nil, &DecodeError{Reason: "reading flac stream", Err: err}
	}
	channels := int(stream.Info.NChannels)
	if channels < 1 || channels > 2 {
		return nil, &DecodeError{Reason: "flac must be mono or stereo"}
	}
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))

	frames := make([][]float32, channels)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Reason: "decoding flac frames", Err: err}
		}
		for ch := 0; ch < channels && ch < len(frame.Subframes); ch++ {
			for _, v := range frame.Subframes[ch].Samples {
				frames[ch] = append(frames[ch], float32(v)/scale)
			}
		}
	}
	return newStore(int(stream.Info.SampleRate), channels, frames)
}
