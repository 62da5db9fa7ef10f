package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var quiet bool

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Upload, download, delete, and list files directly against local storage nodes",
	Long:  "Drives the orchestrator the same way the gateway does, without going through HTTP — useful for operators with direct node access.",
}

var fileUploadCmd = &cobra.Command{
	Use:   "upload [file-path] [filename]",
	Short: "Encrypt, erasure-code, and distribute a file",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		filePath := args[0]
		filename := filepath.Base(filePath)
		if len(args) == 2 {
			filename = args[1]
		}

		f, err := os.Open(filePath)
		if err != nil {
			fmt.Printf("Error opening file: %v\n", err)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			fmt.Printf("Error reading file info: %v\n", err)
			return
		}

		var reader io.Reader = f
		if !quiet {
			bar := progressbar.DefaultBytes(info.Size(), "uploading")
			reader = progressbar.NewReader(f, bar)
		}

		data, err := io.ReadAll(reader)
		if err != nil {
			fmt.Printf("Error reading file: %v\n", err)
			return
		}

		orch, err := buildOrchestrator(cfg)
		if err != nil {
			fmt.Printf("Error wiring orchestrator: %v\n", err)
			return
		}

		manifest, err := orch.Upload(context.Background(), filename, data)
		if err != nil {
			fmt.Printf("Error uploading file: %v\n", err)
			return
		}
		fmt.Printf("File uploaded successfully: %s -> %s (%s, k=%d m=%d)\n",
			filePath, manifest.Filename, humanize.Bytes(uint64(manifest.FileSize)), manifest.KRequired, manifest.MTotal)
	},
}

var fileDownloadCmd = &cobra.Command{
	Use:   "download [filename] [output-path]",
	Short: "Reconstruct, verify, and decrypt a file",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		filename, outputPath := args[0], args[1]

		orch, err := buildOrchestrator(cfg)
		if err != nil {
			fmt.Printf("Error wiring orchestrator: %v\n", err)
			return
		}

		plaintext, err := orch.Download(context.Background(), filename)
		if err != nil {
			fmt.Printf("Error downloading file: %v\n", err)
			return
		}

		if stat, err := os.Stat(outputPath); err == nil && stat.IsDir() {
			outputPath = filepath.Join(outputPath, filename)
		}
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			fmt.Printf("Error creating output directory: %v\n", err)
			return
		}

		outFile, err := os.Create(outputPath)
		if err != nil {
			fmt.Printf("Error creating output file: %v\n", err)
			return
		}
		defer outFile.Close()

		var writer io.Writer = outFile
		if !quiet {
			bar := progressbar.DefaultBytes(int64(len(plaintext)), "downloading")
			writer = io.MultiWriter(outFile, bar)
		}
		if _, err := writer.Write(plaintext); err != nil {
			fmt.Printf("Error writing file: %v\n", err)
			return
		}
		fmt.Printf("File downloaded successfully: %s -> %s (%s)\n", filename, outputPath, humanize.Bytes(uint64(len(plaintext))))
	},
}

var fileDeleteCmd = &cobra.Command{
	Use:   "delete [filename]",
	Short: "Delete a file's shards and manifest",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]

		orch, err := buildOrchestrator(cfg)
		if err != nil {
			fmt.Printf("Error wiring orchestrator: %v\n", err)
			return
		}

		if err := orch.Delete(context.Background(), filename); err != nil {
			fmt.Printf("Error deleting file: %v\n", err)
			return
		}
		fmt.Printf("File deleted successfully: %s\n", filename)
	},
}

var fileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored files",
	Run: func(cmd *cobra.Command, args []string) {
		orch, err := buildOrchestrator(cfg)
		if err != nil {
			fmt.Printf("Error wiring orchestrator: %v\n", err)
			return
		}

		summaries, err := orch.List(context.Background())
		if err != nil {
			fmt.Printf("Error listing files: %v\n", err)
			return
		}
		if len(summaries) == 0 {
			fmt.Println("No files found")
			return
		}
		for _, s := range summaries {
			fmt.Printf("  %-40s %10s  k=%d m=%d  uploaded %s  hash %s...\n",
				s.Filename, humanize.Bytes(uint64(s.FileSize)), s.KRequired, s.MTotal, s.UploadDate, s.FileHashPrefix)
		}
	},
}

func init() {
	fileUploadCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress bars")
	fileDownloadCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress bars")

	fileCmd.AddCommand(fileUploadCmd)
	fileCmd.AddCommand(fileDownloadCmd)
	fileCmd.AddCommand(fileDeleteCmd)
	fileCmd.AddCommand(fileListCmd)
	rootCmd.AddCommand(fileCmd)
}
