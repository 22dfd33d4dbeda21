//go:build !windows

package cmd

import (
	"log"
	"os"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
)

func encodeMp3(outputFile string, sampleRate, numChannels int, pcm []int16) {
	logger.Info("Output format is MP3")

	mp3File, err := os.Create(outputFile)
	if err != nil {
		log.Fatalf("Error creating MP3 file: %v", err)
	}
	defer mp3File.Close()
	mp3Encoder := mp3encoder.NewEncoder(sampleRate, numChannels)

	mp3Encoder.Write(mp3File, pcm)
}
