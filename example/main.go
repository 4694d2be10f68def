package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const baseURL = "http://localhost:8080"

func main() {
	content := "hello resumable world"

	fmt.Println("=== Create Session ===")
	uploadURL, err := createSession(int64(len(content)), "greeting.txt")
	if err != nil {
		fmt.Printf("Create error: %v\n", err)
		return
	}
	fmt.Printf("Session at %s\n", uploadURL)

	fmt.Println("\n=== Upload Chunks ===")
	if err := uploadChunks(uploadURL, content, 8); err != nil {
		fmt.Printf("Upload error: %v\n", err)
		return
	}
	fmt.Println("Upload complete!")

	fmt.Println("\n=== List Files ===")
	if err := listFiles(); err != nil {
		fmt.Printf("List error: %v\n", err)
	}
}

func createSession(length int64, filename string) (string, error) {
	req, err := http.NewRequest(http.MethodPost, baseURL+"/upload", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Upload-Length", strconv.FormatInt(length, 10))
	req.Header.Set("Upload-Metadata",
		"filename "+base64.StdEncoding.EncodeToString([]byte(filename)))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	return baseURL + resp.Header.Get("Location"), nil
}

func uploadChunks(uploadURL, content string, chunkSize int) error {
	offset := 0
	for offset < len(content) {
		end := offset + chunkSize
		if end > len(content) {
			end = len(content)
		}

		req, err := http.NewRequest(http.MethodPatch, uploadURL,
			strings.NewReader(content[offset:end]))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/offset+octet-stream")
		req.Header.Set("Upload-Offset", strconv.Itoa(offset))

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send chunk: %w", err)
		}
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusNoContent:
			offset, err = strconv.Atoi(resp.Header.Get("Upload-Offset"))
			if err != nil {
				return fmt.Errorf("failed to parse Upload-Offset: %w", err)
			}
			fmt.Printf("Offset now %d of %d\n", offset, len(content))
		case http.StatusConflict:
			// Someone else moved the offset; ask the server where to resume.
			offset, err = queryOffset(uploadURL)
			if err != nil {
				return err
			}
			fmt.Printf("Conflict, resuming from %d\n", offset)
		default:
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
	}

	return nil
}

func queryOffset(uploadURL string) (int, error) {
	req, err := http.NewRequest(http.MethodHead, uploadURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return strconv.Atoi(resp.Header.Get("Upload-Offset"))
}

func listFiles() error {
	resp, err := http.Get(baseURL + "/files")
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\nResponse: %s\n", resp.StatusCode, string(body))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
