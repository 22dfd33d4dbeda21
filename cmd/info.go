package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/wavbird/goape/pkg/ape"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show metadata for an APE file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inputFile := args[0]
		r, err := ape.Open(inputFile)
		if err != nil {
			logger.Fatalf("Error opening APE file: %v", err)
		}
		defer r.Close()

		info := r.Info()
		blocks := info.TotalSamples / uint64(info.Channels)
		duration := time.Duration(float64(blocks) / float64(info.SampleRate) * float64(time.Second))

		size := "unknown"
		if fi, err := os.Stat(inputFile); err == nil {
			size = formatSize(int(fi.Size()))
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "file:            %s\n", inputFile)
		fmt.Fprintf(w, "format version:  %d.%02d\n", info.FormatVersion/1000, (info.FormatVersion%1000)/10)
		fmt.Fprintf(w, "compression:     %s (%d)\n", levelName(info.CompressionLevel), info.CompressionLevel)
		fmt.Fprintf(w, "channels:        %d\n", info.Channels)
		fmt.Fprintf(w, "sample rate:     %d Hz\n", info.SampleRate)
		fmt.Fprintf(w, "bit depth:       %d\n", info.BitsPerSample)
		fmt.Fprintf(w, "samples:         %d per channel\n", blocks)
		fmt.Fprintf(w, "duration:        %s\n", formatDuration(duration))
		fmt.Fprintf(w, "size:            %s\n", size)
	},
	DisableFlagsInUseLine: true,
}

func levelName(level uint16) string {
	switch level {
	case ape.CompressionFast:
		return "Fast"
	case ape.CompressionNormal:
		return "Normal"
	case ape.CompressionHigh:
		return "High"
	case ape.CompressionExtraHigh:
		return "Extra High"
	case ape.CompressionInsane:
		return "Insane"
	}
	return "Unknown"
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
