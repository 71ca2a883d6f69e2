// ABOUTME: Liveness probe for the admin API, used by the --health-check flag
// ABOUTME: Exits zero only when the health endpoint answers 200 within the timeout

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// performHealthCheck probes the admin API and returns the process exit
// code. The server address may omit the host for listen addresses like
// ":8080".
func performHealthCheck(addr string) int {
	url := healthCheckURL(addr)

	client := &http.Client{Timeout: healthCheckTimeout}
	resp, err := client.Get(url)
	if err != nil {
		printHealth("unreachable", err.Error())
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		printHealth("unhealthy", fmt.Sprintf("health endpoint returned %d", resp.StatusCode))
		return 1
	}

	printHealth("healthy", "")
	return 0
}

func healthCheckURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/v1/health"
}

func printHealth(status, detail string) {
	result := map[string]string{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if detail != "" {
		result["detail"] = detail
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		fmt.Printf(`{"status":%q}`+"\n", status)
		return
	}
	fmt.Println(string(encoded))
}
