//go:build windows

package cmd

import (
	"fmt"
)

func encodeMp3(outputFile string, sampleRate, numChannels int, pcm []int16) {
	fmt.Println("MP3 is not supported on Windows")
}
