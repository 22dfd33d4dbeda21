package cmd

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/braheezy/qoa"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	"github.com/spf13/cobra"
	"github.com/wavbird/goape/pkg/ape"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input-file> <output-file>",
	Short: "Convert an APE file to another audio format",
	Long:  fmt.Sprintf("Convert an APE file to another audio format. The supported output formats are:\n%v", strings.Join(supportedOutputFormats, "\n")),
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		inputFile := args[0]
		outputFile := args[1]

		if isSupportedConversion(inputFile, outputFile) {
			convertAudio(inputFile, outputFile)
		} else {
			logger.Fatal("Unsupported conversion")
		}
	},
	DisableFlagsInUseLine: true,
}

var supportedOutputFormats = []string{".wav", ".flac", ".mp3", ".qoa"}

func init() {
	rootCmd.AddCommand(convertCmd)
}

// Function to check if the conversion is supported
func isSupportedConversion(inputFile, outputFile string) bool {
	inExt := filepath.Ext(inputFile)
	outExt := filepath.Ext(outputFile)

	return inExt == ".ape" && contains(supportedOutputFormats, outExt)
}

func contains(arr []string, target string) bool {
	for _, item := range arr {
		if item == target {
			return true
		}
	}
	return false
}

// Function to convert audio between formats
func convertAudio(inputFile, outputFile string) {
	r, err := ape.Open(inputFile)
	if err != nil {
		logger.Fatalf("Error opening APE file: %v", err)
	}
	defer r.Close()

	// decodedData is the raw PCM at the stream's native bit depth,
	// interleaved for stereo.
	decodedData, err := r.ReadAll()
	if err != nil {
		logger.Fatalf("Error decoding APE data: %v", err)
	}
	info := r.Info()

	numChannels := int(info.Channels)
	numSamples := len(decodedData) / numChannels

	var inputSize int
	if fi, err := os.Stat(inputFile); err == nil {
		inputSize = int(fi.Size())
	}

	logger.Debug(
		inputFile,
		"channels", numChannels,
		"samplerate(hz)", info.SampleRate,
		"samples/channel", numSamples,
		"bit depth", info.BitsPerSample,
		"compression", levelName(info.CompressionLevel),
		"size", formatSize(inputSize),
		"duration", fmt.Sprintf("%v sec", numSamples/int(info.SampleRate)),
	)

	outExt := filepath.Ext(outputFile)
	switch outExt {
	case ".wav":
		logger.Info("Output format is WAV")
		// Convert int32 to int for WAV conversion
		intAudioData := make([]int, len(decodedData))
		for i, val := range decodedData {
			intAudioData[i] = int(val)
		}

		wavBuffer := &audio.IntBuffer{
			Data:           intAudioData,
			Format:         &audio.Format{SampleRate: int(info.SampleRate), NumChannels: numChannels},
			SourceBitDepth: int(info.BitsPerSample),
		}
		// Write the WAV audio data to WAV file
		wavFile, err := os.Create(outputFile)
		if err != nil {
			log.Fatalf("Error creating WAV file: %v", err)
		}
		defer wavFile.Close()

		wavEncoder := wav.NewEncoder(
			wavFile,
			int(info.SampleRate),
			int(info.BitsPerSample),
			numChannels,
			1)
		if err = wavEncoder.Write(wavBuffer); err != nil {
			log.Fatalf("Error writing WAV data: %v", err)
		}
		defer wavEncoder.Close()
	case ".flac":
		logger.Info("Output format is FLAC")
		flacFile, err := os.Create(outputFile)
		if err != nil {
			log.Fatalf("Error creating FLAC file: %v", err)
		}
		defer flacFile.Close()

		flacEnc, err := flac.NewEncoder(flacFile, &meta.StreamInfo{
			SampleRate:    info.SampleRate,
			NChannels:     uint8(numChannels),
			BitsPerSample: uint8(info.BitsPerSample),
			BlockSizeMin:  16,
			BlockSizeMax:  4096,
		})
		if err != nil {
			log.Fatalf("Failed to initialize FLAC encoder: %v", err)
		}
		// Put the audio data into FLAC frames
		const numSamplesPerChannel = 16
		totalSamples := len(decodedData) / numChannels

		subframes := make([]*frame.Subframe, numChannels)
		for i := range subframes {
			subframes[i] = &frame.Subframe{
				Samples: make([]int32, numSamplesPerChannel),
			}
		}

		for i := 0; i < totalSamples; i += numSamplesPerChannel {
			end := i + numSamplesPerChannel
			if end > totalSamples {
				end = totalSamples
			}

			actualBlockSize := end - i

			for _, subframe := range subframes {
				subHdr := frame.SubHeader{
					Pred:   frame.PredVerbatim,
					Order:  0,
					Wasted: 0,
				}
				subframe.SubHeader = subHdr
				subframe.NSamples = actualBlockSize
				subframe.Samples = subframe.Samples[:subframe.NSamples]
			}

			// Map PCM data into subframes
			for sampleIdx := 0; sampleIdx < actualBlockSize*numChannels; sampleIdx++ {
				ch := sampleIdx % numChannels
				frameIndex := sampleIdx / numChannels
				subframes[ch].Samples[frameIndex] = decodedData[((i+frameIndex)*numChannels)+ch]
			}

			// Construct FLAC Frame
			channels, err := getFLACChannels(numChannels)
			if err != nil {
				log.Fatalf("Error getting FLAC channels: %v", err)
			}

			frameData := &frame.Frame{
				Header: frame.Header{
					HasFixedBlockSize: false,
					BlockSize:         uint16(actualBlockSize),
					SampleRate:        info.SampleRate,
					Channels:          channels,
					BitsPerSample:     uint8(info.BitsPerSample),
				},
				Subframes: subframes,
			}

			// Write FLAC Frame
			if err := flacEnc.WriteFrame(frameData); err != nil {
				log.Fatalf("Error writing FLAC frame: %v", err)
			}

		}

		if err := flacEnc.Close(); err != nil {
			log.Fatalf("Error closing FLAC encoder: %v", err)
		}
	case ".qoa":
		logger.Info("Output format is QOA")
		if info.BitsPerSample > 16 {
			logger.Warn("Bit depth is greater than 16, this may result in loss of precision and sound quality!")
		}
		pcm16 := scaleToInt16(decodedData, info.BitsPerSample)

		q := qoa.NewEncoder(
			info.SampleRate,
			uint32(numChannels),
			uint32(numSamples),
		)
		// Encode the audio data
		qoaEncodedData, err := q.Encode(pcm16)
		if err != nil {
			log.Fatalf("Error encoding audio data to QOA: %v", err)
		}
		// Save the QOA audio data to QOA file
		qoaFile, err := os.Create(outputFile)
		if err != nil {
			log.Fatalf("Error creating QOA file: %v", err)
		}
		defer qoaFile.Close()
		_, err = qoaFile.Write(qoaEncodedData)
		if err != nil {
			log.Fatalf("Error writing QOA data: %v", err)
		}

		psnr := -20.0 * math.Log10(math.Sqrt(float64(q.ErrorCount/int(q.Samples*q.Channels)))/32768.0)

		bitrate := (float64(len(qoaEncodedData)*8) / float64(q.Samples/q.SampleRate)) / 1024
		logger.Debug(outputFile, "size", formatSize(len(qoaEncodedData)), "bitrate", fmt.Sprintf("%0.2f kbit/s", bitrate), "psnr", fmt.Sprintf("%0.2f", psnr))
	case ".mp3":
		if info.BitsPerSample > 16 {
			logger.Warn("Bit depth is greater than 16, this may result in loss of precision and sound quality!")
		}
		encodeMp3(outputFile, int(info.SampleRate), numChannels, scaleToInt16(decodedData, info.BitsPerSample))
	}

	logger.Infof("Conversion completed: %s -> %s", inputFile, outputFile)
}

// scaleToInt16 rescales native-depth samples to the 16-bit range the QOA and
// MP3 encoders expect.
func scaleToInt16(samples []int32, bitsPerSample uint16) []int16 {
	out := make([]int16, len(samples))
	switch bitsPerSample {
	case 8:
		for i, s := range samples {
			out[i] = int16(s << 8)
		}
	case 24:
		for i, s := range samples {
			out[i] = int16(s >> 8)
		}
	default:
		for i, s := range samples {
			out[i] = int16(s)
		}
	}
	return out
}

func getFLACChannels(numChannels int) (frame.Channels, error) {
	switch numChannels {
	case 1:
		return frame.ChannelsMono, nil
	case 2:
		return frame.ChannelsLR, nil
	default:
		return 0, fmt.Errorf("unsupported channel count: %d", numChannels)
	}
}

// formatSize converts the inputSize to a human readable format
func formatSize(inputSize int) string {
	const unit = 1024
	if inputSize < unit {
		return fmt.Sprintf("%d B", inputSize)
	}
	div, exp := int64(unit), 0
	for n := inputSize / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(inputSize)/float64(div), "KMGTPE"[exp])
}
