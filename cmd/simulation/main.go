package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api/assistant/v1"

// Simplified DTOs for the script
type CreateSessionResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type SendTurnRequest struct {
	ChatSessionID string `json:"chat_session_id"`
	Message       string `json:"message"`
}

type SendTurnResponse struct {
	Data struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		Products []struct {
			SKU   string  `json:"sku"`
			Name  string  `json:"name"`
			Brand string  `json:"brand"`
			Price float64 `json:"price"`
		} `json:"products"`
	} `json:"data"`
}

var (
	userLine      = color.New(color.FgCyan, color.Bold)
	assistantLine = color.New(color.FgGreen)
	productLine   = color.New(color.FgYellow)
	metaLine      = color.New(color.FgHiBlack)
)

func main() {
	accessToken := os.Getenv("SIMULATION_TOKEN")
	if accessToken == "" {
		log.Fatal("SIMULATION_TOKEN is not set")
	}

	fmt.Println("=== Assistant Refinement Simulation ===")

	sessionID, err := createSession(accessToken)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	metaLine.Printf("Session Created: %s\n", sessionID)

	// A full refinement loop: vague query, brand reply, attribute reply.
	testCases := []string{
		"hola",
		"busco un diferencial",
		"schneider",
		"de 40A y 30mA",
		"cuanto cuesta el iC60N de 16A?",
	}

	for _, text := range testCases {
		fmt.Println()
		userLine.Printf("USER: %s\n", text)

		start := time.Now()
		reply, err := sendTurn(accessToken, sessionID, text)
		elapsed := time.Since(start)

		if err != nil {
			color.Red("Error: %v", err)
			continue
		}

		assistantLine.Printf("ASSISTANT [%s]: %s\n", reply.Data.Type, reply.Data.Text)
		for _, p := range reply.Data.Products {
			productLine.Printf("  - %s | %s | %s | %.2f EUR\n", p.SKU, p.Brand, p.Name, p.Price)
		}
		metaLine.Printf("(%.2fs)\n", elapsed.Seconds())
	}
}

func createSession(token string) (string, error) {
	req, err := http.NewRequest(http.MethodPost, baseURL+"/session", bytes.NewBufferString("{}"))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", res.StatusCode, string(body))
	}

	var parsed CreateSessionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	return parsed.Data.ID, nil
}

func sendTurn(token, sessionID, text string) (*SendTurnResponse, error) {
	payload, _ := json.Marshal(SendTurnRequest{
		ChatSessionID: sessionID,
		Message:       text,
	})

	req, err := http.NewRequest(http.MethodPost, baseURL+"/turn", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 60 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", res.StatusCode, string(body))
	}

	var parsed SendTurnResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}
