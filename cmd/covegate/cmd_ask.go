// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/covegate/covegate/pkg/logging"
	"github.com/covegate/covegate/services/answerer/datatypes"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	askSourceTags []string // Restrict retrieval to these corpora
	askNoVerify   bool     // Skip the claim verification stage
	askMaxDocs    int      // Retrieval depth override
	askJSONOutput bool     // Emit the raw pipeline result as JSON
	askVerbose    bool     // Show per-claim verification detail
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the answerer service a question",
	Long: `Sends a question through the verified-answer pipeline and prints the
answer with its confidence score.

Examples:
  covegate ask "Quel est le délai d'un virement SEPA ?"
  covegate ask --tags faq,policy "How do I dispute a charge?"
  covegate ask --no-verify "Question rapide"
  covegate ask --json "..." | jq .confidence_score`,
	Args: cobra.MinimumNArgs(1),
	Run:  runAskCommand,
}

func init() {
	askCmd.Flags().StringSliceVar(&askSourceTags, "tags", nil,
		"Restrict retrieval to these source tags")
	askCmd.Flags().BoolVar(&askNoVerify, "no-verify", false,
		"Skip claim verification (faster, lower confidence)")
	askCmd.Flags().IntVar(&askMaxDocs, "max-docs", 0,
		"Maximum evidence documents to retrieve (0 uses the service default)")
	askCmd.Flags().BoolVar(&askJSONOutput, "json", false,
		"Output the raw pipeline result as JSON")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false,
		"Show per-claim verification detail")
	rootCmd.AddCommand(askCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runAskCommand(cmd *cobra.Command, args []string) {
	logger := logging.Default()
	question := strings.Join(args, " ")

	enableVerification := !askNoVerify
	req := datatypes.AnswerRequest{
		Question:           question,
		SourceTags:         askSourceTags,
		EnableVerification: &enableVerification,
		MaxDocuments:       askMaxDocs,
	}

	result, err := postAnswer(&req)
	if err != nil {
		logger.Error("answer request failed", "error", err)
		os.Exit(1)
	}

	if askJSONOutput {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Error("failed to encode result", "error", err)
			os.Exit(1)
		}
		fmt.Println(string(encoded))
		return
	}

	printResult(os.Stdout, result)
}

func postAnswer(req *datatypes.AnswerRequest) (*datatypes.PipelineResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/answer", getAnswererBaseURL())
	client := &http.Client{Timeout: 3 * time.Minute}
	resp, err := client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to reach the answerer service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("answerer returned an error (status %d): %s",
			resp.StatusCode, string(respBody))
	}

	var result datatypes.PipelineResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

func printResult(w io.Writer, result *datatypes.PipelineResult) {
	fmt.Fprintln(w, result.FinalAnswer)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Confidence: %.3f  Quality: %s  Language: %s  (%.0f ms)\n",
		result.ConfidenceScore, qualityLabel(result), result.Language,
		result.ProcessingTimeMS)

	if result.Escalate {
		fmt.Fprintln(w, "NOTE: this answer was escalated for human review.")
	}
	if result.CorrectionsMade > 0 {
		fmt.Fprintf(w, "Corrections applied: %d\n", result.CorrectionsMade)
	}

	if askVerbose {
		printVerifications(w, result)
	}
}

func qualityLabel(result *datatypes.PipelineResult) string {
	switch {
	case result.QualityPass:
		return "pass"
	case result.Escalate:
		return "escalate"
	default:
		return "warn"
	}
}

func printVerifications(w io.Writer, result *datatypes.PipelineResult) {
	if len(result.Evidence) > 0 {
		fmt.Fprintln(w, "\nEvidence:")
		for _, doc := range result.Evidence {
			fmt.Fprintf(w, "  [%s] score=%.3f source=%s\n", doc.ID, doc.Score, doc.SourceTag)
		}
	}
	if len(result.Verifications) > 0 {
		fmt.Fprintln(w, "\nVerifications:")
		for _, v := range result.Verifications {
			status := "FAILED"
			if v.IsVerified {
				status = "ok"
			}
			fmt.Fprintf(w, "  [%s] %.2f %s\n", status, v.Confidence, v.Claim.Fact)
		}
	}
}
