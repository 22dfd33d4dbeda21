package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wavbird/goape/pkg/ape"
)

var minimalPlayer bool

var playCmd = &cobra.Command{
	Use:   "play <file/directories>",
	Short: "Play .ape audio file(s)",
	Long:  "Provide one or more APE files to play.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// Input is one or more files or directories. Find all APE files, recursively.
		var allFiles []string
		for _, arg := range args {
			info, err := os.Stat(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error accessing %s: %v\n", arg, err)
				continue
			}
			if info.IsDir() {
				files, err := findAllAPEFiles(arg)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error walking %s: %v\n", arg, err)
					continue
				}
				allFiles = append(allFiles, files...)
			} else {
				valid, err := ape.IsValidAPEFile(arg)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error checking file %s: %v\n", arg, err)
					continue
				}
				if valid {
					allFiles = append(allFiles, arg)
				}
			}
		}
		if len(allFiles) == 0 {
			fmt.Println("No valid APE files found :(")
			return
		}
		if minimalPlayer {
			startMinimalPlayer(allFiles[0])
			return
		}
		startTUI(allFiles)
	},
}

// Recursive function to find all valid APE files
func findAllAPEFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			valid, _ := ape.IsValidAPEFile(path)
			if valid {
				files = append(files, path)
			}
		}
		return nil
	})
	return files, err
}
func init() {
	playCmd.Flags().BoolVarP(&minimalPlayer, "minimal", "m", false, "Play without the progress UI")
	rootCmd.AddCommand(playCmd)
}
