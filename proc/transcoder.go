package proc

import (
	"context"
	"errors"
	"math"

	"github.com/asticode/go-astiav"
)

const (
	opusSampleRate = 48000
	opusFrameSize  = 960
	opusBitRate    = 128000
)

var ErrNoAudioStream = errors.New("no audio stream")

func init() {
	astiav.SetLogLevel(astiav.LogLevelFatal)
}

// Transcoder decodes a local file and re-encodes it as 20ms stereo opus
// frames. gain is read once per frame so volume changes apply mid-track.
type Transcoder struct {
	inputCtx               *astiav.FormatContext
	decoderCtx, encoderCtx *astiav.CodecContext
	audioStreamIndex       int
	packet                 *astiav.Packet
	frame                  *astiav.Frame
	resampleCtx            *astiav.SoftwareResampleContext
	resampleFrame          *astiav.Frame
	fifo                   *astiav.AudioFifo
	gain                   func() float64
	onFrame                func([]byte)
	pts                    int64
}

func NewTranscoder(gain func() float64) *Transcoder {
	if gain == nil {
		gain = func() float64 { return 1 }
	}
	return &Transcoder{
		packet:        astiav.AllocPacket(),
		frame:         astiav.AllocFrame(),
		resampleFrame: astiav.AllocFrame(),
		gain:          gain,
	}
}

func (t *Transcoder) OpenInput(path string) error {
	t.inputCtx = astiav.AllocFormatContext()
	if t.inputCtx == nil {
		return errors.New("failed to alloc format context")
	}
	if err := t.inputCtx.OpenInput(path, nil, nil); err != nil {
		return err
	}
	if err := t.inputCtx.FindStreamInfo(nil); err != nil {
		return err
	}
	t.audioStreamIndex = -1
	for _, s := range t.inputCtx.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeAudio {
			t.audioStreamIndex = s.Index()
			break
		}
	}
	if t.audioStreamIndex == -1 {
		return ErrNoAudioStream
	}
	return nil
}

func (t *Transcoder) SetupDecoder() error {
	p := t.inputCtx.Streams()[t.audioStreamIndex].CodecParameters()
	d := astiav.FindDecoder(p.CodecID())
	if d == nil {
		return errors.New("no decoder")
	}
	t.decoderCtx = astiav.AllocCodecContext(d)
	_ = p.ToCodecContext(t.decoderCtx)
	return t.decoderCtx.Open(d, nil)
}

func (t *Transcoder) SetupEncoder() error {
	e := astiav.FindEncoderByName("libopus")
	if e == nil {
		e = astiav.FindEncoder(astiav.CodecIDOpus)
	}
	if e == nil {
		return errors.New("no opus encoder")
	}
	t.encoderCtx = astiav.AllocCodecContext(e)
	t.encoderCtx.SetBitRate(opusBitRate)
	t.encoderCtx.SetSampleRate(opusSampleRate)
	t.encoderCtx.SetChannelLayout(astiav.ChannelLayoutStereo)
	t.encoderCtx.SetSampleFormat(astiav.SampleFormatS16)
	t.encoderCtx.SetTimeBase(astiav.NewRational(1, opusSampleRate))
	o := astiav.NewDictionary()
	defer o.Free()
	o.Set("vbr", "on", 0)
	o.Set("frame_size", "20", 0)
	if err := t.encoderCtx.Open(e, o); err != nil {
		return err
	}
	// initialized lazily by ConvertFrame from the first decoded frame
	t.resampleCtx = astiav.AllocSoftwareResampleContext()
	if t.resampleCtx == nil {
		return errors.New("failed to allocate resampler")
	}
	return nil
}

// Transcode runs until the input is exhausted or ctx is canceled. Every
// encoded packet is copied and passed to on.
func (t *Transcoder) Transcode(ctx context.Context, on func([]byte)) error {
	defer t.packet.Unref()
	t.onFrame = on
	t.fifo = astiav.AllocAudioFifo(t.encoderCtx.SampleFormat(), t.encoderCtx.ChannelLayout().Channels(), opusFrameSize*2)
	defer func() {
		t.fifo.Free()
		t.fifo = nil
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.inputCtx.ReadFrame(t.packet); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				break
			}
			return err
		}
		if t.packet.StreamIndex() != t.audioStreamIndex {
			t.packet.Unref()
			continue
		}
		if err := t.decoderCtx.SendPacket(t.packet); err != nil {
			t.packet.Unref()
			return err
		}
		t.packet.Unref()
		if err := t.drainDecoder(); err != nil {
			return err
		}
	}

	// flush decoder, then whatever is left in the fifo, then the encoder
	_ = t.decoderCtx.SendPacket(nil)
	if err := t.drainDecoder(); err != nil {
		return err
	}
	for t.fifo.Size() > 0 {
		if err := t.writeChunk(min(t.fifo.Size(), opusFrameSize)); err != nil {
			return err
		}
	}
	_ = t.encoderCtx.SendFrame(nil)
	t.receivePackets()
	return nil
}

func (t *Transcoder) drainDecoder() error {
	for {
		if err := t.decoderCtx.ReceiveFrame(t.frame); err != nil {
			return nil
		}
		t.resetResampleFrame()
		nb := int(astiav.RescaleQ(int64(t.frame.NbSamples()), astiav.NewRational(1, t.frame.SampleRate()), astiav.NewRational(1, t.encoderCtx.SampleRate())))
		if nb > 0 {
			t.resampleFrame.SetNbSamples(nb)
			_ = t.resampleFrame.AllocBuffer(0)
			if err := t.resampleCtx.ConvertFrame(t.frame, t.resampleFrame); err == nil {
				_, _ = t.fifo.Write(t.resampleFrame)
			}
		}
		t.frame.Unref()
		for t.fifo.Size() >= opusFrameSize {
			if err := t.writeChunk(opusFrameSize); err != nil {
				return err
			}
		}
	}
}

func (t *Transcoder) resetResampleFrame() {
	t.resampleFrame.Unref()
	t.resampleFrame.SetChannelLayout(t.encoderCtx.ChannelLayout())
	t.resampleFrame.SetSampleFormat(t.encoderCtx.SampleFormat())
	t.resampleFrame.SetSampleRate(t.encoderCtx.SampleRate())
}

func (t *Transcoder) writeChunk(sz int) error {
	t.resetResampleFrame()
	t.resampleFrame.SetNbSamples(sz)
	_ = t.resampleFrame.AllocBuffer(0)
	_, _ = t.fifo.Read(t.resampleFrame)

	if g := t.gain(); g != 1 {
		data, err := t.resampleFrame.Data().Bytes(1)
		if err == nil {
			// s16 stereo: 4 bytes per sample
			applyGain(data[:min(len(data), sz*4)], g)
			_ = t.resampleFrame.Data().SetBytes(data, 1)
		}
	}

	t.resampleFrame.SetPts(t.pts)
	t.pts += int64(sz)
	if err := t.encoderCtx.SendFrame(t.resampleFrame); err != nil {
		return err
	}
	t.receivePackets()
	return nil
}

func (t *Transcoder) receivePackets() {
	for {
		p := astiav.AllocPacket()
		if t.encoderCtx.ReceivePacket(p) != nil {
			p.Free()
			return
		}
		if t.onFrame != nil {
			d := p.Data()
			fd := make([]byte, len(d))
			copy(fd, d)
			t.onFrame(fd)
		}
		p.Free()
	}
}

func (t *Transcoder) Close() {
	if t.resampleCtx != nil {
		t.resampleCtx.Free()
	}
	if t.resampleFrame != nil {
		t.resampleFrame.Free()
	}
	if t.packet != nil {
		t.packet.Free()
	}
	if t.frame != nil {
		t.frame.Free()
	}
	if t.decoderCtx != nil {
		t.decoderCtx.Free()
	}
	if t.encoderCtx != nil {
		t.encoderCtx.Free()
	}
	if t.inputCtx != nil {
		t.inputCtx.CloseInput()
		t.inputCtx.Free()
	}
}

// applyGain scales little-endian s16 samples in place, saturating at the
// int16 range.
func applyGain(data []byte, gain float64) {
	if math.IsNaN(gain) || gain < 0 {
		gain = 0
	}
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(uint16(data[i]) | uint16(data[i+1])<<8)
		scaled := math.Round(float64(sample) * gain)
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		v := uint16(int16(scaled))
		data[i] = byte(v)
		data[i+1] = byte(v >> 8)
	}
}
