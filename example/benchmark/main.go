package main

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mkrett/shuttle/pkg/sdk"
)

// Measures upload throughput against a running server for a range of chunk
// sizes, so operators can pick a sensible default for their network.
func main() {
	baseURL := "http://localhost:8080"
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}

	payloadSize := int64(32 << 20) // 32 MiB
	if len(os.Args) > 2 {
		parsed, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			fmt.Printf("Invalid payload size: %v\n", err)
			os.Exit(1)
		}
		payloadSize = parsed
	}

	payload := make([]byte, payloadSize)
	if _, err := rand.Read(payload); err != nil {
		fmt.Printf("Error generating payload: %v\n", err)
		os.Exit(1)
	}

	client := sdk.NewClient(baseURL)

	fmt.Println("Upload Throughput Benchmark")
	fmt.Printf("Server: %s\n", baseURL)
	fmt.Printf("Payload: %s\n", formatSize(payloadSize))
	fmt.Println()
	fmt.Printf("%-12s %15s %15s\n", "Chunk Size", "Time", "Throughput")

	chunkSizes := []int64{256 << 10, 1 << 20, 4 << 20, 16 << 20}
	for _, chunkSize := range chunkSizes {
		duration, err := benchmarkUpload(client, payload, chunkSize)
		if err != nil {
			fmt.Printf("%-12s upload failed: %v\n", formatSize(chunkSize), err)
			continue
		}
		printResult(formatSize(chunkSize), duration, payloadSize)
	}
}

func benchmarkUpload(client *sdk.Client, payload []byte, chunkSize int64) (time.Duration, error) {
	start := time.Now()
	_, err := client.Upload(sdk.UploadRequest{
		Content:     bytes.NewReader(payload),
		Length:      int64(len(payload)),
		Filename:    fmt.Sprintf("bench-%d.bin", chunkSize),
		ContentType: "application/octet-stream",
		ChunkSize:   chunkSize,
	})
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start)

	// Clean up so repeated runs don't pile assets onto the server.
	files, err := client.Files(fmt.Sprintf("bench-%d.bin", chunkSize))
	if err == nil {
		for _, f := range files {
			_ = client.Delete(f.ID)
		}
	}

	return elapsed, nil
}

func printResult(name string, duration time.Duration, payloadSize int64) {
	throughput := float64(payloadSize) / (1024 * 1024) / duration.Seconds()
	fmt.Printf("%-12s %15s %12.2f MB/s\n",
		name,
		duration.Round(time.Millisecond),
		throughput,
	)
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
