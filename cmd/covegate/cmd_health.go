// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the answerer service and its vector index",
	Run:   runHealthCommand,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealthCommand(cmd *cobra.Command, args []string) {
	client := &http.Client{Timeout: 10 * time.Second}
	baseURL := getAnswererBaseURL()

	status, _, err := getJSON(client, baseURL+"/health")
	if err != nil {
		fmt.Printf("service:  DOWN (%v)\n", err)
		os.Exit(1)
	}
	fmt.Printf("service:  %s\n", status["status"])

	ready, code, err := getJSON(client, baseURL+"/ready")
	switch {
	case err != nil:
		fmt.Printf("index:    unknown (%v)\n", err)
		os.Exit(1)
	case code != http.StatusOK:
		fmt.Printf("index:    %s (%s)\n", ready["status"], ready["error"])
		os.Exit(1)
	default:
		fmt.Printf("index:    %s (%v documents)\n", ready["status"], ready["documents"])
	}
}

func getJSON(client *http.Client, url string) (map[string]any, int, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("unexpected response: %s", string(body))
	}
	return parsed, resp.StatusCode, nil
}
