package morsekey

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// WavReader 简单的 WAV 文件读取器 (仅支持 16-bit PCM Mono/Stereo)
// 用于回放录下来的键控音频
type WavReader struct {
	file       *os.File
	SampleRate int
	Channels   int
	DataSize   int
}

// NewWavReader 打开 WAV 文件并解析头部
func NewWavReader(filename string) (*WavReader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	riffHeader := make([]byte, 12)
	if _, err := io.ReadFull(f, riffHeader); err != nil {
		f.Close()
		return nil, err
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		f.Close()
		return nil, fmt.Errorf("invalid wav file")
	}

	var channels, sampleRate, bitsPerSample, dataSize int
	var dataStart int64
	foundFmt := false
	foundData := false

	for !foundData || !foundFmt {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(f, chunkHeader); err != nil {
			break
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])
		// chunk 大小为奇数时有一个 pad 字节
		padding := int64(chunkSize % 2)

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				f.Close()
				return nil, fmt.Errorf("fmt chunk too small")
			}
			fmtData := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, fmtData); err != nil {
				f.Close()
				return nil, err
			}
			if padding > 0 {
				f.Seek(padding, io.SeekCurrent)
			}
			channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(fmtData[14:16]))
			foundFmt = true
		case "data":
			dataSize = int(chunkSize)
			pos, _ := f.Seek(0, io.SeekCurrent)
			dataStart = pos
			foundData = true
			if !foundFmt {
				if _, err := f.Seek(int64(chunkSize)+padding, io.SeekCurrent); err != nil {
					f.Close()
					return nil, err
				}
			}
		default:
			if _, err := f.Seek(int64(chunkSize)+padding, io.SeekCurrent); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	if !foundFmt || !foundData {
		f.Close()
		return nil, fmt.Errorf("invalid wav file: missing fmt or data chunk")
	}
	if bitsPerSample != 16 {
		f.Close()
		return nil, fmt.Errorf("only 16-bit wav supported, got %d", bitsPerSample)
	}

	if _, err := f.Seek(dataStart, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	return &WavReader{
		file:       f,
		SampleRate: sampleRate,
		Channels:   channels,
		DataSize:   dataSize,
	}, nil
}

// ReadSamples 读取并归一化采样数据，立体声只取第一个通道
// count: 要读取的采样点数 (每个通道)
func (r *WavReader) ReadSamples(count int) ([]float32, error) {
	buf := make([]byte, count*r.Channels*2)
	n, err := r.file.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}

	numFrames := n / (2 * r.Channels)
	out := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		offset := i * 2 * r.Channels
		val := int16(binary.LittleEndian.Uint16(buf[offset : offset+2]))
		out[i] = float32(val) / 32768.0
	}
	return out, nil
}

func (r *WavReader) Close() error {
	return r.file.Close()
}

// WavWriter 简单的 WAV 文件写入器 (16-bit PCM Mono)
// 用于录下键控会话以便回放调试
type WavWriter struct {
	file       *os.File
	sampleRate int
	dataSize   int
}

// NewWavWriter 创建写入器，头部先写占位符，Close 时回写正确的大小
func NewWavWriter(filename string, sampleRate int) (*WavWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(make([]byte, 44)); err != nil {
		f.Close()
		return nil, err
	}
	return &WavWriter{file: f, sampleRate: sampleRate}, nil
}

// WriteSamples 写入音频采样数据 (float32 -> int16，带限幅)
func (w *WavWriter) WriteSamples(samples []float32) error {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(s*32767)))
	}
	n, err := w.file.Write(buf)
	if err != nil {
		return err
	}
	w.dataSize += n
	return nil
}

// Close 回写 WAV 头并关闭文件
func (w *WavWriter) Close() error {
	header := make([]byte, 44)
	copy(header[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(header[4:], uint32(36+w.dataSize))
	copy(header[8:], []byte("WAVE"))
	copy(header[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(header[16:], 16) // PCM fmt chunk
	binary.LittleEndian.PutUint16(header[20:], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:], 1)  // Mono
	binary.LittleEndian.PutUint32(header[24:], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(w.sampleRate*2))
	binary.LittleEndian.PutUint16(header[32:], 2)
	binary.LittleEndian.PutUint16(header[34:], 16)
	copy(header[36:], []byte("data"))
	binary.LittleEndian.PutUint32(header[40:], uint32(w.dataSize))

	if _, err := w.file.Seek(0, 0); err != nil {
		return err
	}
	if _, err := w.file.Write(header); err != nil {
		return err
	}
	return w.file.Close()
}
