package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const roomID = "53bb302d107e137846ba5db7"

func main() {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	token := os.Getenv("HERALD_TOKEN")

	urls := []string{
		fmt.Sprintf("https://api.gitter.im/v1/rooms/%s/chatMessages?limit=1", roomID),
		fmt.Sprintf("https://stream.gitter.im/v1/rooms/%s/chatMessages", roomID),
	}

	for _, url := range urls {
		fmt.Printf("\nTesting URL: %s\n", url)

		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			fmt.Printf("Build request error: %v\n", err)
			continue
		}
		req.Header.Set("Accept", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := client.Do(req)
		if err != nil {
			fmt.Printf("GET request error: %v\n", err)
			continue
		}

		fmt.Printf("GET Status: %d\n", resp.StatusCode)
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		if err != nil {
			fmt.Printf("Read body error: %v\n", err)
			continue
		}
		fmt.Printf("Response body length: %d bytes\n", len(body))
		if len(body) > 100 {
			fmt.Printf("First 100 bytes: %s\n", body[:100])
		}
	}
}
