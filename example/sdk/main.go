package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mkrett/shuttle/pkg/sdk"
)

func main() {
	client := sdk.NewClient("http://localhost:8080")

	// Upload
	content := strings.Repeat("This is file content. ", 1024)
	uploadURL, err := client.Upload(sdk.UploadRequest{
		Content:     strings.NewReader(content),
		Length:      int64(len(content)),
		Filename:    "example.txt",
		ContentType: "text/plain",
		ChunkSize:   4 << 10,
		OnProgress: func(sent, total int64) {
			fmt.Printf("Progress: %d/%d bytes\n", sent, total)
		},
	})
	if err != nil {
		fmt.Printf("Upload failed: %v\n", err)
		return
	}

	fmt.Printf("Upload successful: %s\n", uploadURL)

	// List
	files, err := client.Files("example")
	if err != nil {
		fmt.Printf("List failed: %v\n", err)
		return
	}
	if len(files) == 0 {
		fmt.Println("No files found")
		return
	}

	// Download with checksum verification
	out, err := os.Create("downloaded_example.txt")
	if err != nil {
		fmt.Printf("Failed to create file: %v\n", err)
		return
	}
	defer out.Close()

	if err := client.Download(files[0].ID, out); err != nil {
		fmt.Printf("Download failed: %v\n", err)
		return
	}

	fmt.Println("Download successful")
}
